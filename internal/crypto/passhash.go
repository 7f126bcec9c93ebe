// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// scheme prefixes every encoded hash: "argon2id$<salt>$<key>".
const scheme = "argon2id"

var b64 = base64.RawStdEncoding

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword derives an Argon2id key with a fresh random salt and returns
// both encoded into a single string suitable for the users.password column.
func HashPassword(password string) (string, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", err
	}
	return encode(salt, derive([]byte(password), salt)), nil
}

// VerifyPassword reports whether password matches an encoded hash produced by HashPassword.
func VerifyPassword(password, encoded string) bool {
	salt, want, err := decode(encoded)
	if err != nil {
		return false
	}
	got := derive([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

func encode(salt, key []byte) string {
	return scheme + "$" + b64.EncodeToString(salt) + "$" + b64.EncodeToString(key)
}

func decode(encoded string) (salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != scheme {
		return nil, nil, errors.New("unsupported hash format")
	}
	if salt, err = b64.DecodeString(parts[1]); err != nil {
		return nil, nil, err
	}
	if key, err = b64.DecodeString(parts[2]); err != nil {
		return nil, nil, err
	}
	if len(key) != int(argonKeyLen) {
		return nil, nil, errors.New("bad key length")
	}
	return salt, key, nil
}
