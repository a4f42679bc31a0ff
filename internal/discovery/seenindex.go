package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SeenIndex is a fast platform-post-id index, one bucket per campaign. It
// fronts the sqlite UNIQUE constraint so a cycle can dedup in memory without
// attempting inserts; the constraint remains the backstop.
type SeenIndex struct {
	db *bolt.DB
}

// NewSeenIndex opens the index database, creating it if missing.
func NewSeenIndex(path string) (*SeenIndex, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	return &SeenIndex{db: db}, nil
}

func (s *SeenIndex) Close() error {
	return s.db.Close()
}

// Load returns every seen platform post id for the campaign. Called once per
// cycle so dedup checks need no per-item lookups.
func (s *SeenIndex) Load(campaignID string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(campaignID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			seen[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load seen index: %w", err)
	}
	return seen, nil
}

// Mark records platform post ids as seen for the campaign.
func (s *SeenIndex) Mark(campaignID string, platformPostIDs []string) error {
	if len(platformPostIDs) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(campaignID))
		if err != nil {
			return fmt.Errorf("failed to create campaign bucket: %w", err)
		}
		for _, id := range platformPostIDs {
			if err := b.Put([]byte(id), nil); err != nil {
				return fmt.Errorf("failed to mark seen: %w", err)
			}
		}
		return nil
	})
}

// Drop removes a campaign's bucket, e.g. after campaign deletion.
func (s *SeenIndex) Drop(campaignID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(campaignID)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(campaignID))
	})
}
