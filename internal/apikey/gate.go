package apikey

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// Scheme prefixes the key in the Authorization header value.
const Scheme = "API_KEY "

// ErrMissingCredential is returned when no Authorization value was presented.
var ErrMissingCredential = errors.New("api key is required")

// ErrInvalidCredentialFormat is returned when the Authorization value does not
// use the API_KEY scheme.
var ErrInvalidCredentialFormat = errors.New("authorization value is not an api key")

// ErrInvalidCredential is returned when the key is unknown, inactive, or not
// the administrative key where one is required.
var ErrInvalidCredential = errors.New("api key is invalid")

// ParseAuthHeader strips the API_KEY scheme from an Authorization value.
func ParseAuthHeader(value string) (string, error) {
	if value == "" {
		return "", ErrMissingCredential
	}
	key, ok := strings.CutPrefix(value, Scheme)
	if !ok {
		return "", ErrInvalidCredentialFormat
	}
	return key, nil
}

// Gate authorizes requests by API key at two tiers.
type Gate struct {
	repo Repository
}

// NewGate creates a Gate backed by repo.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// RequireKey accepts any active key. authorization is the raw header value.
func (g *Gate) RequireKey(ctx context.Context, authorization string) (*APIKey, error) {
	raw, err := ParseAuthHeader(authorization)
	if err != nil {
		return nil, err
	}

	k, err := g.repo.GetByKey(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("looking up api key: %w", err)
	}

	if !k.Active {
		return nil, ErrInvalidCredential
	}

	return k, nil
}

// RequireAdminKey accepts only the active key labelled AdminDeviceName. The
// presented key is compared against the admin record rather than looked up.
func (g *Gate) RequireAdminKey(ctx context.Context, authorization string) (*APIKey, error) {
	raw, err := ParseAuthHeader(authorization)
	if err != nil {
		return nil, err
	}

	admin, err := g.repo.GetByDeviceName(ctx, AdminDeviceName)
	if err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("looking up admin api key: %w", err)
	}

	keyCorrect := subtle.ConstantTimeCompare([]byte(admin.Key), []byte(raw)) == 1
	if !keyCorrect || !admin.Active {
		return nil, ErrInvalidCredential
	}

	return admin, nil
}
