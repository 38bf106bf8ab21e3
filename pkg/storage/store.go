package storage

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPath is returned for paths with empty segments or
	// forbidden characters.
	ErrInvalidPath = errors.New("invalid path")

	// ErrOverlappingPaths is returned when a multi-path update names a
	// path and one of its descendants.
	ErrOverlappingPaths = errors.New("overlapping paths in update")
)

// Reader reads the tree. Absent paths are not errors: Get reports false
// and Keys returns an empty slice.
type Reader interface {
	// Get decodes the subtree at path into dst. dst may be nil to only
	// test for existence.
	Get(path string, dst any) (bool, error)
	Exists(path string) (bool, error)
	// Keys returns the child keys at path in ascending byte order.
	Keys(path string) ([]string, error)
}

// Tx is a read-write view of the tree inside one transaction
type Tx interface {
	Reader
	// Set replaces the subtree at path. A nil value or empty object
	// removes it.
	Set(path string, value any) error
	// Update sets each child of path named in fields, leaving the
	// other children untouched. Field names may contain '/'.
	Update(path string, fields map[string]any) error
	Remove(path string) error
	// Push stores value under a new time-ordered child key of path.
	Push(path string, value any) (string, error)
}

// Store is a hierarchical key-value tree with atomic multi-path writes
type Store interface {
	Get(ctx context.Context, path string, dst any) (bool, error)
	Exists(ctx context.Context, path string) (bool, error)
	Keys(ctx context.Context, path string) ([]string, error)

	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	Push(ctx context.Context, path string, value any) (string, error)

	// MultiUpdate commits every path→value pair or none of them. Nil
	// values remove their path.
	MultiUpdate(ctx context.Context, updates map[string]any) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(Reader) error) error

	// Transact runs fn in a serialized read-write transaction. Writes
	// are committed only if fn returns nil.
	Transact(ctx context.Context, fn func(Tx) error) error

	Close() error
}
