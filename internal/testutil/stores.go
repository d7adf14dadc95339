// Package testutil holds in-memory repositories shared by tests across
// packages.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/user"
)

// UserStore implements user.Repository in memory. Uniqueness on username and
// email is enforced like a real store. Set the *Err fields to inject errors.
type UserStore struct {
	CreateErr error
	GetErr    error
	UpdateErr error

	// BeforeCreate runs inside Create before uniqueness checks; tests use it
	// to simulate a concurrent insert.
	BeforeCreate func(u *user.User)

	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]*user.User)}
}

// Create inserts a copy of u.
func (s *UserStore) Create(_ context.Context, u *user.User) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if s.BeforeCreate != nil {
		s.BeforeCreate(u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return user.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}

	s.nextID++
	now := time.Now().UTC()
	u.ID = s.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

// Insert stores u without the injected error hooks.
func (s *UserStore) Insert(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	stored := *u
	s.users[u.ID] = &stored
}

// GetByUsername returns a copy of the user with username.
func (s *UserStore) GetByUsername(_ context.Context, username string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.Username == username })
}

// GetByEmail returns a copy of the user with email.
func (s *UserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.Email == email })
}

// UpdatePasswordHash replaces the stored hash of user id.
func (s *UserStore) UpdatePasswordHash(_ context.Context, id int64, passwordHash string) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *UserStore) find(match func(*user.User) bool) (*user.User, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, user.ErrUserNotFound
}

// APIKeyStore implements apikey.Repository in memory.
type APIKeyStore struct {
	CreateErr error
	GetErr    error

	// CreateHook, when set, may return an error for a Create call before it
	// is applied; tests use it to simulate races.
	CreateHook func(k *apikey.APIKey) error

	mu     sync.Mutex
	nextID int64
	keys   map[int64]*apikey.APIKey
}

// NewAPIKeyStore returns an APIKeyStore seeded with keys.
func NewAPIKeyStore(keys ...*apikey.APIKey) *APIKeyStore {
	s := &APIKeyStore{keys: make(map[int64]*apikey.APIKey)}
	for _, k := range keys {
		s.Insert(k)
	}
	return s
}

// Insert stores k without the injected error hooks.
func (s *APIKeyStore) Insert(k *apikey.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	k.ID = s.nextID
	stored := *k
	s.keys[k.ID] = &stored
}

// Create inserts a copy of k.
func (s *APIKeyStore) Create(_ context.Context, k *apikey.APIKey) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if s.CreateHook != nil {
		if err := s.CreateHook(k); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keys {
		if existing.DeviceName == k.DeviceName {
			return apikey.ErrDuplicateDeviceName
		}
		if existing.Key == k.Key {
			return apikey.ErrDuplicateKey
		}
	}

	s.nextID++
	k.ID = s.nextID
	k.CreatedAt = time.Now().UTC()
	stored := *k
	s.keys[k.ID] = &stored
	return nil
}

// GetByKey returns a copy of the record with key.
func (s *APIKeyStore) GetByKey(_ context.Context, key string) (*apikey.APIKey, error) {
	return s.find(func(k *apikey.APIKey) bool { return k.Key == key })
}

// GetByDeviceName returns a copy of the record for deviceName.
func (s *APIKeyStore) GetByDeviceName(_ context.Context, deviceName string) (*apikey.APIKey, error) {
	return s.find(func(k *apikey.APIKey) bool { return k.DeviceName == deviceName })
}

// Deactivate clears the active flag on the record for deviceName.
func (s *APIKeyStore) Deactivate(_ context.Context, deviceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.DeviceName == deviceName {
			if k.Active {
				now := time.Now().UTC()
				k.Active = false
				k.DeactivatedAt = &now
			}
			return nil
		}
	}
	return apikey.ErrAPIKeyNotFound
}

// Count returns the number of stored keys.
func (s *APIKeyStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *APIKeyStore) find(match func(*apikey.APIKey) bool) (*apikey.APIKey, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if match(k) {
			found := *k
			return &found, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}
