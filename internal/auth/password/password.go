// Package password hashes credentials with Argon2id in the PHC string format.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// MinLength is the shortest password accepted on register, change and reset.
const MinLength = 8

type params struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}

var current = params{time: 1, memory: 64 * 1024, threads: 4, keyLen: 32}

const saltLen = 16

var errMalformed = errors.New("malformed argon2id hash")

// dummy is verified against when the account does not exist so both paths cost the same.
var dummy, _ = Hash("bizcore-dummy-password")

func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, current.time, current.memory, current.threads, current.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, current.memory, current.time, current.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func Verify(password, encoded string) bool {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false
	}
	check := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, check) == 1
}

// VerifyDummy burns one hash computation and always fails.
func VerifyDummy(password string) bool {
	Verify(password, dummy)
	return false
}

// NeedsRehash reports whether encoded was produced with weaker parameters than current.
func NeedsRehash(encoded string) bool {
	p, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.time < current.time || p.memory < current.memory || p.threads < current.threads
}

func decode(encoded string) (params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return params{}, nil, nil, errMalformed
	}

	var p params
	for _, kv := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return params{}, nil, nil, errMalformed
		}
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return params{}, nil, nil, errMalformed
		}
		switch name {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return params{}, nil, nil, errMalformed
			}
			p.threads = uint8(n)
		default:
			return params{}, nil, nil, errMalformed
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return params{}, nil, nil, errMalformed
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params{}, nil, nil, errMalformed
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params{}, nil, nil, errMalformed
	}
	return p, salt, key, nil
}
