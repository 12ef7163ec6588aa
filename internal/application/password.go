package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-secure-stdlib/permitpool"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters used for new hashes.
// Verification always uses the parameters encoded in the stored hash.
type Argon2Params struct {
	Iterations uint32
	Memory     uint32 // KiB
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultArgon2Params returns t=3, m=64MiB, p=4 with a 16 byte salt and a
// 32 byte key. These are the widely used argon2id defaults.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Iterations: 3,
		Memory:     64 * 1024,
		Threads:    4,
		SaltLength: 16,
		KeyLength:  32,
	}
}

// PasswordHasher produces and verifies PHC-encoded argon2id hashes.
// Concurrent derivations are limited by a permit pool since each call holds
// Memory KiB for its duration.
type PasswordHasher struct {
	params     Argon2Params
	permits    *permitpool.Pool
	randReader io.Reader
}

// NewPasswordHasher creates a hasher allowing at most permits concurrent
// key derivations. permits <= 0 is treated as 1.
func NewPasswordHasher(params Argon2Params, permits int) *PasswordHasher {
	if permits <= 0 {
		permits = 1
	}
	return &PasswordHasher{
		params:     params,
		permits:    permitpool.New(permits),
		randReader: rand.Reader,
	}
}

// Hash returns the encoded hash of plaintext with a fresh random salt:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.randReader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := h.derive(ctx, []byte(plaintext), salt, h.params)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks plaintext against an encoded hash. It returns nil on match and
// ErrAuthentication on mismatch or when the hash cannot be decoded.
func (h *PasswordHasher) Verify(ctx context.Context, encoded, plaintext string) error {
	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return ErrAuthentication
	}

	got, err := h.derive(ctx, []byte(plaintext), salt, params)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrAuthentication
	}
	return nil
}

func (h *PasswordHasher) derive(ctx context.Context, password, salt []byte, p Argon2Params) ([]byte, error) {
	if err := h.permits.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for hashing permit: %w", err)
	}
	defer h.permits.Release()

	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Threads, p.KeyLength), nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("unsupported hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("parse version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode key: %w", err)
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
