package identity

import (
	"context"
	"sync"
)

// MemoryProvider is an in-memory Provider for tests and local development.
type MemoryProvider struct {
	mu       sync.RWMutex
	users    map[string]User
	sessions map[string]string // token -> user id
}

// NewMemoryProvider builds an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		users:    make(map[string]User),
		sessions: make(map[string]string),
	}
}

// PutUser inserts or replaces a user.
func (m *MemoryProvider) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// PutSession binds a session token to a user id.
func (m *MemoryProvider) PutSession(token, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = userID
}

func (m *MemoryProvider) ResolveSession(ctx context.Context, token string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionInvalid
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrSessionInvalid
	}
	return &u, nil
}

func (m *MemoryProvider) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryProvider) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MemoryProvider) UpdateUserRole(ctx context.Context, id, role string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Role = role
	m.users[id] = u
	return &u, nil
}
