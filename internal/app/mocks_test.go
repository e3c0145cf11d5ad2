package app

import (
	"context"
	"sort"
	"sync"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// mockStorageManager keeps every record in memory.
type mockStorageManager struct {
	internal *mockInternalStore
	user     *mockUserStore
	closed   bool
}

func newMockStorageManager() *mockStorageManager {
	return &mockStorageManager{
		internal: &mockInternalStore{kv: make(map[string]string)},
		user:     &mockUserStore{records: make(map[string]*models.UserRecord)},
	}
}

func (m *mockStorageManager) InternalStore() interfaces.InternalStore { return m.internal }
func (m *mockStorageManager) UserDataStore() interfaces.UserDataStore { return m.user }
func (m *mockStorageManager) Close() error {
	m.closed = true
	return nil
}

type mockInternalStore struct {
	mu sync.Mutex
	kv map[string]string
}

func (s *mockInternalStore) GetSystemKV(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	if !ok {
		return "", models.ErrNotFound
	}
	return v, nil
}

func (s *mockInternalStore) SetSystemKV(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

type mockUserStore struct {
	mu      sync.Mutex
	records map[string]*models.UserRecord
}

func recordKey(userID, subject, key string) string {
	return userID + "/" + subject + "/" + key
}

func (s *mockUserStore) Get(_ context.Context, userID, subject, key string) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[recordKey(userID, subject, key)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (s *mockUserStore) Put(_ context.Context, r *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[recordKey(r.UserID, r.Subject, r.Key)] = &cp
	return nil
}

func (s *mockUserStore) Delete(_ context.Context, userID, subject, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey(userID, subject, key))
	return nil
}

func (s *mockUserStore) List(_ context.Context, userID, subject string) ([]*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.UserRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Subject == subject {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// countingFX records every currency it is asked about.
type countingFX struct {
	mu    sync.Mutex
	calls []string
}

func (f *countingFX) Rate(_ context.Context, code string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, code)
	return 1
}
