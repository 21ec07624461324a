// Package docstore persists JSON documents keyed by collection and
// identifier. Three interchangeable backends exist: a flat JSON file per
// collection, Redis, and Postgres. Callers select a backend at startup and
// never branch on it afterwards.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// Logical collection names shared across backends.
const (
	CollectionUsers   = "users"
	CollectionForms   = "form"
	CollectionReports = "report"
)

var ErrNotFound = errors.New("document not found")

// Store reads and writes whole documents. Put is an upsert: a document
// written under an existing identifier fully replaces the prior one.
type Store interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection, id string, doc json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}
