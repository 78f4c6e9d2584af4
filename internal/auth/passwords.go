package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 256
)

// ErrMalformedHash is returned for stored hashes that are not PHC-format
// argon2id strings.
var ErrMalformedHash = errors.New("malformed argon2id hash")

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

var currentParams = argon2Params{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
	saltLen:     16,
	keyLen:      32,
}

// passwordHash is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type passwordHash struct {
	params argon2Params
	salt   []byte
	key    []byte
}

func (h passwordHash) String() string {
	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.memory, h.params.iterations, h.params.parallelism,
		enc.EncodeToString(h.salt), enc.EncodeToString(h.key))
}

func (h passwordHash) matches(plaintext string) bool {
	p := h.params
	got := argon2.IDKey([]byte(plaintext), h.salt, p.iterations, p.memory, p.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1
}

func parsePasswordHash(s string) (passwordHash, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return passwordHash{}, ErrMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return passwordHash{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var h passwordHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.memory, &h.params.iterations, &h.params.parallelism); err != nil {
		return passwordHash{}, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return passwordHash{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return passwordHash{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	h.params.saltLen = uint32(len(h.salt))
	h.params.keyLen = uint32(len(h.key))
	return h, nil
}

// ValidatePassword returns a field message, or "" when the password is acceptable.
func ValidatePassword(plaintext string) string {
	switch {
	case len(plaintext) < MinPasswordLength:
		return fmt.Sprintf("must be at least %d characters", MinPasswordLength)
	case len(plaintext) > MaxPasswordLength:
		return fmt.Sprintf("must be at most %d characters", MaxPasswordLength)
	}
	return ""
}

func HashPassword(plaintext string) (string, error) {
	return hashWith(plaintext, currentParams)
}

func hashWith(plaintext string, p argon2Params) (string, error) {
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.iterations, p.memory, p.parallelism, p.keyLen)
	return passwordHash{params: p, salt: salt, key: key}.String(), nil
}

func VerifyPassword(hash, plaintext string) (bool, error) {
	h, err := parsePasswordHash(hash)
	if err != nil {
		return false, err
	}
	return h.matches(plaintext), nil
}

// NeedsRehash reports whether hash was produced with weaker parameters
// than HashPassword uses today. Unparseable hashes always need one.
func NeedsRehash(hash string) bool {
	h, err := parsePasswordHash(hash)
	if err != nil {
		return true
	}
	p, c := h.params, currentParams
	return p.memory < c.memory || p.iterations < c.iterations || p.keyLen < c.keyLen
}
