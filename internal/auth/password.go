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

// SaltLength is the salt size in bytes for every new password hash.
const SaltLength = 16

const (
	argonThreads = uint8(2)
	argonKeyLen  = uint32(32)
)

// ErrInvalidHash is returned when a stored hash is not a PHC argon2id string.
var ErrInvalidHash = errors.New("invalid password hash format")

// Hasher derives and verifies argon2id password hashes.
type Hasher struct {
	time   uint32
	memory uint32
}

// NewHasher creates a Hasher with the given iteration count and memory in KiB.
func NewHasher(time, memoryKiB uint32) *Hasher {
	return &Hasher{time: time, memory: memoryKiB}
}

// Hash returns the PHC-formatted argon2id hash of password:
// $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<b64 salt>$<b64 hash>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Parameters are read from
// the encoded hash, so hashes made with older settings keep verifying.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: version %q", ErrInvalidHash, parts[2])
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: params: %v", ErrInvalidHash, err)
	}
	if time < 1 || threads < 1 {
		return false, fmt.Errorf("%w: params out of range", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, fmt.Errorf("%w: key", ErrInvalidHash)
	}

	key := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}
