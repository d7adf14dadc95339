package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/token"
	"github.com/authgate/authgate/internal/user"
)

// ErrInvalidCredentials is returned by CheckPassword for an unknown username
// or a wrong password. The cause is wrapped alongside it.
var ErrInvalidCredentials = errors.New("username or password is invalid")

// ErrPasswordMismatch is returned when a password does not match the stored hash.
var ErrPasswordMismatch = errors.New("password does not match")

// ErrConfirmMismatch is returned when the new and confirm passwords differ.
var ErrConfirmMismatch = errors.New("confirm password does not match the new password")

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = errors.New("username is already used")

// ErrEmailTaken is returned when registering an existing email.
var ErrEmailTaken = errors.New("email is already registered")

// ErrDeviceNameTaken is returned when a key already exists for the device.
var ErrDeviceNameTaken = errors.New("device name is already used")

// ErrDeviceNotRegistered is returned when no key exists for the device.
var ErrDeviceNotRegistered = errors.New("device name is not registered")

// ErrAdminKeyProtected is returned when attempting to deactivate the admin key.
var ErrAdminKeyProtected = errors.New("admin api key cannot be deactivated")

// Service provides authentication operations.
type Service struct {
	users       user.Repository
	keys        apikey.Repository
	codec       *token.Codec
	hasher      *Hasher
	tokenTTL    time.Duration
	generateKey func() (string, error)
	dummyHash   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithKeyGenerator replaces the random API key source.
func WithKeyGenerator(generate func() (string, error)) Option {
	return func(s *Service) {
		s.generateKey = generate
	}
}

// NewService creates a new auth Service.
func NewService(users user.Repository, keys apikey.Repository, codec *token.Codec, hasher *Hasher, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:       users,
		keys:        keys,
		codec:       codec,
		hasher:      hasher,
		tokenTTL:    tokenTTL,
		generateKey: apikey.GenerateKey,
	}
	// Unknown usernames are verified against this hash so both failure paths
	// cost one argon2 derivation.
	s.dummyHash = sync.OnceValue(func() string {
		h, err := hasher.Hash("authgate-dummy-password")
		if err != nil {
			return ""
		}
		return h
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckPassword verifies the credentials and, on success, returns a
// serialized token bound to userAgent.
func (s *Service) CheckPassword(ctx context.Context, username, password, userAgent string) (string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash())
			return "", fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return "", fmt.Errorf("fetching user: %w", err)
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrPasswordMismatch)
	}

	return token.Serialize(s.codec.Issue(userAgent, s.tokenTTL)), nil
}

// ChangePassword replaces the password of username after checking the
// current password and that newPassword equals confirmPassword.
func (s *Service) ChangePassword(ctx context.Context, username, currentPassword, newPassword, confirmPassword string) error {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("fetching user: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return ErrPasswordMismatch
	}

	if newPassword != confirmPassword {
		return ErrConfirmMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("updating password: %w", err)
	}

	return nil
}

// RegisterUser creates a user. Username uniqueness is checked before email.
// The store's unique constraints decide concurrent registrations.
func (s *Service) RegisterUser(ctx context.Context, username, email, password string) (*user.User, error) {
	if taken, err := s.exists(ctx, s.users.GetByUsername, username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	if taken, err := s.exists(ctx, s.users.GetByEmail, email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		case errors.Is(err, user.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return u, nil
}

func (s *Service) exists(ctx context.Context, get func(context.Context, string) (*user.User, error), value string) (bool, error) {
	_, err := get(ctx, value)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, user.ErrUserNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("fetching user: %w", err)
}

// IssueAPIKey generates and stores a new active key for deviceName.
func (s *Service) IssueAPIKey(ctx context.Context, deviceName string) (string, error) {
	_, err := s.keys.GetByDeviceName(ctx, deviceName)
	if err == nil {
		return "", ErrDeviceNameTaken
	}
	if !errors.Is(err, apikey.ErrAPIKeyNotFound) {
		return "", fmt.Errorf("fetching api key: %w", err)
	}

	for {
		key, err := apikey.GenerateUnique(ctx, s.generateKey, apikey.KeyTaken(s.keys))
		if err != nil {
			return "", fmt.Errorf("generating api key: %w", err)
		}

		k := &apikey.APIKey{
			Key:        key,
			DeviceName: deviceName,
			Active:     true,
		}
		err = s.keys.Create(ctx, k)
		switch {
		case err == nil:
			return key, nil
		case errors.Is(err, apikey.ErrDuplicateKey):
			// Lost a race for this key value; draw another.
			continue
		case errors.Is(err, apikey.ErrDuplicateDeviceName):
			return "", ErrDeviceNameTaken
		default:
			return "", fmt.Errorf("creating api key: %w", err)
		}
	}
}

// DeactivateAPIKey revokes the key registered for deviceName. The admin key
// cannot be deactivated through the service.
func (s *Service) DeactivateAPIKey(ctx context.Context, deviceName string) error {
	if deviceName == apikey.AdminDeviceName {
		return ErrAdminKeyProtected
	}

	if err := s.keys.Deactivate(ctx, deviceName); err != nil {
		if errors.Is(err, apikey.ErrAPIKeyNotFound) {
			return ErrDeviceNotRegistered
		}
		return fmt.Errorf("deactivating api key: %w", err)
	}

	return nil
}

// ValidateToken reports whether rawToken is a valid token for userAgent.
// It never fails: absent or undecodable tokens are simply invalid.
func (s *Service) ValidateToken(rawToken, userAgent string) bool {
	if rawToken == "" {
		return false
	}

	t, err := token.Parse(rawToken)
	if err != nil {
		slog.Debug("rejecting undecodable token", "error", err)
		return false
	}

	return s.codec.Validate(t, userAgent)
}

// BootstrapAdminKey creates the admin key if none exists. Returns the raw key
// (only displayed once). If an admin key already exists, returns empty string.
func (s *Service) BootstrapAdminKey(ctx context.Context) (string, error) {
	_, err := s.keys.GetByDeviceName(ctx, apikey.AdminDeviceName)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, apikey.ErrAPIKeyNotFound) {
		return "", fmt.Errorf("fetching admin api key: %w", err)
	}

	key, err := s.IssueAPIKey(ctx, apikey.AdminDeviceName)
	if err != nil {
		if errors.Is(err, ErrDeviceNameTaken) {
			// Another instance bootstrapped concurrently.
			return "", nil
		}
		return "", fmt.Errorf("creating admin api key: %w", err)
	}

	slog.Info("Admin API key created", "key", key)

	return key, nil
}
