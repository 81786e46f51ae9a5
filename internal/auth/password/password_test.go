package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, Verify("s3cret-pass", encoded))
	assert.False(t, Verify("wrong", encoded))
	assert.False(t, NeedsRehash(encoded))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	assert.False(t, Verify("x", "not-a-hash"))
	assert.False(t, Verify("x", "$argon2id$v=19$m=0,t=1,p=1$AAAA$AAAA"))
	assert.True(t, NeedsRehash("$bcrypt$whatever"))
}

func TestWeakerParamsNeedRehash(t *testing.T) {
	assert.True(t, NeedsRehash("$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5"))
}

func TestVerifyDummyNeverMatches(t *testing.T) {
	assert.False(t, VerifyDummy("bizcore-dummy-password"))
}
