package storage

import (
	"context"
	"sync"

	"appkeyid/core"
)

// Session fixtures shared by the package tests and integration_test.
var (
	FixtureUser = &core.User{
		UserID:    "user_1",
		FirstName: "Mock",
		LastName:  "User",
		Email:     "user1@mock.test",
		Status:    "active",
		Authenticators: []core.Passkey{
			{
				ID:         "passkey_1",
				PublicKey:  "mock_public_key_1",
				Counter:    3,
				DeviceType: "singleDevice",
				Name:       "Personal iPhone",
				Platform:   "ios",
				CreatedAt:  "2026-01-01T00:00:00.000Z",
				UpdatedAt:  "2026-01-01T00:00:00.000Z",
			},
		},
	}

	FixtureSession = &core.Session{
		User:        FixtureUser,
		AccessToken: "mock_access_token_1",
		JWT:         "mock_jwt_1",
		IDToken:     "mock_id_token_1",
	}
)

// MemoryStore is an in-process session store. It is the default choice for
// apps that do not need the session to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	session core.Session

	// Track method calls for verification
	CurrentCalls int
	ReplaceCalls int
	ClearCalls   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith seeds the store with an established session.
func NewMemoryStoreWith(session *core.Session) *MemoryStore {
	store := &MemoryStore{}
	if session != nil {
		store.session = *session
	}
	return store
}

func (m *MemoryStore) Current(ctx context.Context) (*core.Session, error) {
	m.mu.Lock()
	m.CurrentCalls++
	session := m.session
	m.mu.Unlock()
	return &session, nil
}

func (m *MemoryStore) Replace(ctx context.Context, session *core.Session) error {
	if !session.Valid() {
		return core.ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplaceCalls++
	m.session = *session
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	m.session = core.Session{}
	return nil
}
