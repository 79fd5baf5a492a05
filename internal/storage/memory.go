package storage

import (
	"context"
	"sort"
	"sync"
)

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps bookmarks in process memory. Default backend; also the
// one tests seed.
type MemoryStore struct {
	mu        sync.RWMutex
	bookmarks map[string][]Bookmark // keyed by user id
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookmarks: make(map[string][]Bookmark),
	}
}

// Add stores a bookmark under its user id
func (s *MemoryStore) Add(b Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[b.UserID] = append(s.bookmarks[b.UserID], b)
}

// ListBookmarks returns the user's bookmarks, newest first
func (s *MemoryStore) ListBookmarks(_ context.Context, userID string) ([]Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.bookmarks[userID]
	out := make([]Bookmark, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
