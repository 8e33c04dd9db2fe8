// Package records is the durable record store underneath the session engine.
//
// Records live in partitions addressed by a partition key (pk) and are
// ordered inside a partition by a sort key (sk). Callers read single records,
// upsert them, insert them exactly once, or scan a partition by sort-key
// prefix. That is the whole contract: the session store builds versioned,
// append-only collections on top of it by choosing sort keys that order
// correctly as plain strings.
//
// Two implementations are provided: SQLiteStore for real use and MemoryStore
// for tests and throwaway sessions.
package records

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists at (pk, sk).
var ErrNotFound = errors.New("records: not found")

// ErrConflict is returned by Create when a record already exists at (pk, sk).
var ErrConflict = errors.New("records: already exists")

// Record is a single stored item. Body is opaque to the store.
type Record struct {
	PK        string    `json:"pk"`
	SK        string    `json:"sk"`
	Kind      string    `json:"kind"`
	Body      []byte    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueryOptions controls the order and size of a partition scan.
type QueryOptions struct {
	Reverse bool // descending sort-key order
	Limit   int  // 0 means no limit
}

// Store is the persistence abstraction the session engine depends on.
type Store interface {
	// Get returns the record at (pk, sk) or ErrNotFound.
	Get(ctx context.Context, pk, sk string) (*Record, error)
	// Put inserts or replaces the record at (rec.PK, rec.SK).
	Put(ctx context.Context, rec Record) error
	// Create inserts rec and fails with ErrConflict if the key is taken.
	Create(ctx context.Context, rec Record) error
	// Query returns the records of pk whose sort key starts with prefix.
	Query(ctx context.Context, pk, prefix string, opts QueryOptions) ([]Record, error)
	Close() error
}
