package session

import (
	"context"
	"sync"
)

// MemoryStore mantém os tokens em memória; usado nos testes
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryStore cria o store com os usuários informados e token vazio
func NewMemoryStore(users ...string) *MemoryStore {
	m := &MemoryStore{tokens: make(map[string]string, len(users))}
	for _, u := range users {
		m.tokens[u] = ""
	}
	return m
}

func (m *MemoryStore) Token(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[userID]
	if !ok {
		return "", ErrUnknownUser
	}
	return tok, nil
}

func (m *MemoryStore) SetToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[userID]; !ok {
		return ErrUnknownUser
	}
	m.tokens[userID] = token
	return nil
}

func (m *MemoryStore) Adopt(_ context.Context, userID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tokens[userID]
	if !ok {
		return false, ErrUnknownUser
	}
	if cur != "" {
		return false, nil
	}
	m.tokens[userID] = token
	return true, nil
}

func (m *MemoryStore) RevokeIf(_ context.Context, userID, expected, marker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.tokens[userID]; ok && (expected == "" || cur == expected) {
		m.tokens[userID] = marker
	}
	return nil
}
