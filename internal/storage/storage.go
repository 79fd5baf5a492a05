// Package storage reads the bookmark collection for the home view. The
// collection itself is owned by the downstream processor; this side only
// lists it, scoped to one user.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be queried
var ErrUnavailable = errors.New("bookmark store unavailable")

// Bookmark is one saved link as the home view renders it
type Bookmark struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"user_id"`
	URL       string    `json:"url" firestore:"url"`
	Title     string    `json:"title" firestore:"title"`
	Summary   string    `json:"summary,omitempty" firestore:"summary,omitempty"`
	Tags      []string  `json:"tags,omitempty" firestore:"tags,omitempty"`
	Category  string    `json:"category,omitempty" firestore:"category,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

// Store lists a user's bookmarks, newest first
type Store interface {
	ListBookmarks(ctx context.Context, userID string) ([]Bookmark, error)
	Close() error
}
