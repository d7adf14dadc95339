package apikey

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// KeyLength is the length of a generated key: 16 bytes, unpadded base64url.
const KeyLength = 22

// GenerateKey returns a random 128-bit identifier encoded as unpadded
// URL-safe base64.
func GenerateKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating random identifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(id[:]), nil
}

// GenerateUnique calls generate until taken reports the candidate absent.
// There is no attempt cap; only ctx cancellation ends the loop early.
func GenerateUnique(ctx context.Context, generate func() (string, error), taken func(context.Context, string) (bool, error)) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := generate()
		if err != nil {
			return "", err
		}

		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking key collision: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// KeyTaken adapts a Repository into a GenerateUnique collision check.
func KeyTaken(repo Repository) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, key string) (bool, error) {
		_, err := repo.GetByKey(ctx, key)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, ErrAPIKeyNotFound) {
			return false, nil
		}
		return false, err
	}
}
