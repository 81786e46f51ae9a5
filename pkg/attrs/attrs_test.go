package attrs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagJSON(t *testing.T) {
	var bag Bag
	require.NoError(t, json.Unmarshal([]byte(`{"size":"M","weight":500.5,"organic":true}`), &bag))

	size, ok := bag["size"].Str()
	assert.True(t, ok)
	assert.Equal(t, "M", size)

	weight, ok := bag["weight"].Num()
	assert.True(t, ok)
	assert.Equal(t, 500.5, weight)

	assert.Equal(t, KindBool, bag["organic"].Kind())
	assert.Equal(t, []string{"organic", "size", "weight"}, bag.Keys())

	out, err := json.Marshal(bag)
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":"M","weight":500.5,"organic":true}`, string(out))
}

func TestValueRejectsNested(t *testing.T) {
	var bag Bag
	assert.Error(t, json.Unmarshal([]byte(`{"size":{"eu":40}}`), &bag))
	assert.Error(t, json.Unmarshal([]byte(`{"size":[1,2]}`), &bag))
}

func TestText(t *testing.T) {
	assert.Equal(t, "500", Number(500).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "Rojo", String("Rojo").Text())
}
