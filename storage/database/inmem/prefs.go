package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/schoolhealth/core/prefs"
)

type prefsTable struct {
	mutex sync.RWMutex
	table map[string][]byte
}

// PrefsStore keeps preferences in memory, for tests and throwaway sessions.
type PrefsStore struct {
	db *prefsTable
}

var _ prefs.Store = (*PrefsStore)(nil)

func NewPrefsStore() *PrefsStore {
	return &PrefsStore{db: &prefsTable{table: make(map[string][]byte)}}
}

func (s *PrefsStore) Get(_ context.Context, key string) ([]byte, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()
	value, ok := s.db.table[key]
	if !ok {
		return nil, prefs.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *PrefsStore) Set(_ context.Context, key string, value []byte) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()
	s.db.table[key] = append([]byte(nil), value...)
	return nil
}

func (s *PrefsStore) Delete(_ context.Context, key string) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()
	if _, ok := s.db.table[key]; !ok {
		return prefs.ErrNotFound
	}
	delete(s.db.table, key)
	return nil
}
