// Package service wires the sync core together: the reconciliation/merge
// read path every screen uses, and the manual sync pass that pushes pending
// local records to the server.
package service

import (
	"context"

	"github.com/agrotrack/fieldsync/internal/model"
)

// Gateway is the remote API surface the services need. Implemented by
// gateway.Gateway; faked in tests.
type Gateway interface {
	List(ctx context.Context, ownerID string) ([]model.Record, error)
	Create(ctx context.Context, ownerID string, rec model.Record) (model.Record, error)
	UpdateStatus(ctx context.Context, ownerID, recordID, newStatus string) (model.Record, error)
	DeleteRecord(ctx context.Context, ownerID, recordID string) error
	DeleteAction(ctx context.Context, ownerID, recordID, actionID string) error
}

// LocalStore is the on-device record store surface. Implemented by
// store.Store.
type LocalStore interface {
	ListLocal(ctx context.Context, owner string) []model.Record
	ListPending(ctx context.Context, owner string) []model.Record
	Append(ctx context.Context, rec model.Record) (model.Record, error)
	MarkSynced(ctx context.Context, localID string) error
	Remove(ctx context.Context, localID string) (bool, error)
	MutateStatus(ctx context.Context, localID, newStatus string) error
	AppendHistory(ctx context.Context, localID string, a model.Action) (bool, error)
	RemoveAction(ctx context.Context, localID, actionID string) (bool, error)
}

// Cache is the TTL cache of server-fetched lists. Implemented by
// cache.Cache.
type Cache interface {
	Get(ctx context.Context, owner string) ([]model.Record, bool)
	GetStale(ctx context.Context, owner string) ([]model.Record, bool)
	Put(ctx context.Context, owner string, records []model.Record) error
	Invalidate(ctx context.Context, owner string) error
}
