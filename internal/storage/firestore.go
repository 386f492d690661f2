package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pickframe/photos-front/internal/log"
)

// Ensure FirestoreStore implements the TokenStore interface
var _ TokenStore = (*FirestoreStore)(nil)

// FirestoreStore persists token records in Google Cloud Firestore, one
// document per Google user id.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a Firestore-backed token store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error

	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	store := &FirestoreStore{
		client:     client,
		collection: collection,
	}

	// Count existing records so startup logs show whether we're looking at
	// the expected dataset. Failures here are logged, not fatal.
	if count, err := store.countRecords(ctx); err != nil {
		log.LogWarnWithFields("storage", "Failed to count token records at startup", map[string]any{
			"error": err.Error(),
		})
	} else {
		log.LogInfoWithFields("storage", "Firestore token store ready", map[string]any{
			"collection": collection,
			"records":    count,
		})
	}

	return store, nil
}

func (s *FirestoreStore) countRecords(ctx context.Context) (int, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("iterating token records: %w", err)
		}
		count++
	}
	return count, nil
}

// Upsert inserts or replaces the record for record.GoogleUserID
func (s *FirestoreStore) Upsert(ctx context.Context, record *TokenRecord) error {
	if record == nil {
		return fmt.Errorf("token record cannot be nil")
	}
	if record.GoogleUserID == "" {
		return fmt.Errorf("token record requires a google user id")
	}

	copied := *record
	copied.UpdatedAt = time.Now()

	_, err := s.client.Collection(s.collection).Doc(copied.GoogleUserID).Set(ctx, &copied)
	if err != nil {
		return fmt.Errorf("failed to upsert token record: %w", err)
	}
	return nil
}

// Get returns the record for a Google user id, or ErrTokenRecordNotFound
func (s *FirestoreStore) Get(ctx context.Context, googleUserID string) (*TokenRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(googleUserID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrTokenRecordNotFound
		}
		return nil, fmt.Errorf("failed to fetch token record: %w", err)
	}

	var record TokenRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}
	return &record, nil
}

// Close releases the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
