package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rvilla/marks-front/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Ensure FirestoreStore implements the Store interface
var _ Store = (*FirestoreStore)(nil)

// FirestoreStore reads bookmarks from a Firestore collection written by
// the downstream processor. Reads return errors; there are no writes on
// this side.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore connects to the given project/database/collection
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	var client *firestore.Client
	var err error
	if database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Connected to Firestore", map[string]any{
		"project":    projectID,
		"collection": collection,
	})

	return &FirestoreStore{client: client, collection: collection}, nil
}

// ListBookmarks returns the user's bookmarks, newest first
func (s *FirestoreStore) ListBookmarks(ctx context.Context, userID string) ([]Bookmark, error) {
	iter := s.client.Collection(s.collection).
		Where("user_id", "==", userID).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var bookmarks []Bookmark
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		var b Bookmark
		if err := doc.DataTo(&b); err != nil {
			log.LogWarnWithFields("storage", "Skipping malformed bookmark document", map[string]any{
				"doc":   doc.Ref.ID,
				"error": err.Error(),
			})
			continue
		}
		if b.ID == "" {
			b.ID = doc.Ref.ID
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, nil
}

// Close releases the underlying client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
