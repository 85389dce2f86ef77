package services

import "github.com/aeroclub/membership-backend/internal/models"

// MemberStore is the external keyed collection the pipeline writes to. The
// engine depends on exactly these capabilities and is agnostic to the
// store's transport: batched atomic upsert-by-key, full-collection read,
// point read, and the two clear modes. internal/database.MemberRepository is
// the production implementation.
type MemberStore interface {
	// UpsertBatch writes one chunk as a single atomic batch. A failed
	// batch must leave none of its records behind.
	UpsertBatch(members []*models.MemberProfile) error

	// ListAll reads the entire collection.
	ListAll() ([]*models.MemberProfile, error)

	// GetByExternalKey returns the member for a key, or nil when absent.
	GetByExternalKey(key string) (*models.MemberProfile, error)

	// DeleteAll physically removes every record.
	DeleteAll() (int64, error)

	// DeactivateAll marks every record inactive without removing it.
	DeactivateAll(updatedBy string) (int64, error)

	// CountMembers returns the collection size.
	CountMembers() (int, error)
}
