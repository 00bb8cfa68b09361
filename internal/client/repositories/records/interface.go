// Package records implements the address-scoped local cache shared by all
// content verticals. Every vertical stores the same record shape in its
// own table; queries never cross address boundaries.
package records

import (
	"context"
	"time"
)

// Record is the cached entity for one piece of content. Key is the
// vertical's natural key (status id, paste title, PURL name, ...).
type Record struct {
	Address   string
	Key       string
	Content   string
	CreatedAt time.Time

	// Listed controls whether the entity appears in public listings.
	Listed bool

	// Submitted is false while a locally written record has not been
	// confirmed by the server (optimistic write awaiting reconciliation).
	Submitted bool
}

// Repository describes the cache operations the content repositories
// need. All queries are scoped to a single address and ordered by
// creation time descending.
type Repository interface {
	// Upsert inserts or wholesale-replaces a record by (address, key).
	Upsert(ctx context.Context, rec Record) error

	// ListByAddress returns records for one address, newest first.
	// limit <= 0 means no limit.
	ListByAddress(ctx context.Context, address string, limit int) ([]Record, error)

	// Get returns one record or common.ErrNotFound.
	Get(ctx context.Context, address, key string) (*Record, error)

	// Delete removes a record. Deleting an absent record is an error.
	Delete(ctx context.Context, address, key string) error

	// MarkSubmitted flips the submitted flag for one record.
	MarkSubmitted(ctx context.Context, address, key string, submitted bool) error

	// ListUnsubmitted returns records awaiting reconciliation, oldest
	// first so retries happen in write order.
	ListUnsubmitted(ctx context.Context, address string) ([]Record, error)

	// DeleteByAddress removes every record for an address (full-resync
	// prune support).
	DeleteByAddress(ctx context.Context, address string) error

	// Transact runs fn inside one transaction; fn's repository argument
	// is bound to it. An error from fn rolls every write back.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}
