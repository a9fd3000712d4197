package usecase

import (
	"context"
	"io"
	"iter"
	"time"

	"foodshare_backend/internal/feature/listing/domain/entity"
)

// ListingRepository persists listings.
// Every status-changing write is conditional on the expected current status and
// reports ErrStatusConflict when the condition does not hold.
type ListingRepository interface {
	// Create assigns an ID and stores l.
	Create(ctx context.Context, l *entity.Listing) error

	// FindByID returns ErrListingNotFound when absent.
	FindByID(ctx context.Context, id string) (*entity.Listing, error)

	// List yields matching listings newest first. The sequence may be ranged more than once.
	List(ctx context.Context, f entity.Filter) iter.Seq2[*entity.Listing, error]

	// Update applies p only while the listing is still in status expected.
	Update(ctx context.Context, id string, expected entity.Status, p entity.Patch) (*entity.Listing, error)

	// Transition moves the listing from one status to another. A non-empty claimant is recorded as ClaimedBy.
	Transition(ctx context.Context, id string, from, to entity.Status, claimant string) (*entity.Listing, error)

	// ExpireBefore moves every available listing created before cutoff to expired.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// AddImage appends an object key to the listing's images.
	AddImage(ctx context.Context, id, key string) (*entity.Listing, error)

	Delete(ctx context.Context, id string) error
}

// OwnerDirectory resolves owner summaries for expansion.
// It returns nil without error when the user is missing or inactive.
type OwnerDirectory interface {
	OwnerSummary(ctx context.Context, userID string) (*entity.OwnerSummary, error)
}

// ImageStore keeps uploaded listing images.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}

// ImageLabeler describes image content.
type ImageLabeler interface {
	Labels(ctx context.Context, image []byte) ([]string, error)
}

// EventPublisher announces lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev entity.Event) error
}
