// Package store implements the local record store: durable, owner-scoped
// persistence of records authored on-device, each carrying a sync flag.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agrotrack/fieldsync/internal/common"
	"github.com/agrotrack/fieldsync/internal/dbx"
	"github.com/agrotrack/fieldsync/internal/kv"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"
)

// recordsKey is the kv key holding the whole local record list. Entries
// carry their owner; reads filter, writes replace the list wholesale.
const recordsKey = "localRecords"

// Store persists locally-authored records through the kv layer. Mutations
// read-modify-write the full list inside a transaction, so concurrent
// callers see either the old or the new list, never a partial one.
type Store struct {
	db  *sql.DB
	log logging.Logger
}

func New(db *sql.DB, log logging.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) readAll(ctx context.Context, repo kv.Repository) ([]model.Record, error) {
	raw, err := repo.Get(ctx, recordsKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var records []model.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode local records: %w", err)
	}
	return records, nil
}

func (s *Store) writeAll(ctx context.Context, repo kv.Repository, records []model.Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode local records: %w", err)
	}
	return repo.Set(ctx, recordsKey, raw)
}

// mutate runs fn against the current list inside a transaction and persists
// the list fn returns. Write failures wrap common.ErrStorageWrite.
func (s *Store) mutate(ctx context.Context, fn func(records []model.Record) ([]model.Record, error)) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		records, err := s.readAll(ctx, repo)
		if err != nil {
			return err
		}
		updated, err := fn(records)
		if err != nil {
			return err
		}
		if updated == nil {
			// fn made no change
			return nil
		}
		return s.writeAll(ctx, repo, updated)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageWrite, err)
	}
	return nil
}

// ListLocal returns every locally persisted record belonging to owner, in
// stored order. It never fails: storage read errors are logged and degrade
// to an empty result, because local storage trouble must not break reads.
func (s *Store) ListLocal(ctx context.Context, owner string) []model.Record {
	records, err := s.readAll(ctx, kv.NewSQLiteRepository(s.db))
	if err != nil {
		s.log.Error(ctx, "failed to read local records", "owner", owner, "error", err)
		return nil
	}

	var result []model.Record
	for _, r := range records {
		if r.Owner == owner {
			result = append(result, r)
		}
	}
	return result
}

// ListPending returns owner's records still awaiting a successful push.
func (s *Store) ListPending(ctx context.Context, owner string) []model.Record {
	var pending []model.Record
	for _, r := range s.ListLocal(ctx, owner) {
		if !r.Synced {
			pending = append(pending, r)
		}
	}
	return pending
}

// Append validates and persists a new local record. A fresh local id is
// assigned when none is given, CreatedAt is stamped, and an empty history
// gets a synthesized first action describing the initiating mutation.
// Unlike reads, a failure here propagates: silently losing a user-authored
// record is unacceptable.
func (s *Store) Append(ctx context.Context, rec model.Record) (model.Record, error) {
	if rec.ID == "" {
		rec.ID = model.NewLocalID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if len(rec.History) == 0 {
		rec.AppendAction(model.NewAction(model.ActionSowing, "", map[string]string{"seed": rec.Crop}))
	}
	rec.Provenance = model.ProvenanceLocal
	rec.Synced = false

	if err := rec.Validate(); err != nil {
		return model.Record{}, err
	}

	err := s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		// a repeated overlay for the same identity replaces the previous one
		for i := range records {
			if records[i].ID == rec.ID {
				records[i] = rec
				return records, nil
			}
		}
		return append(records, rec), nil
	})
	if err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// MarkSynced flips the sync flag of the record with the given local id.
// Idempotent; an absent id is a no-op.
func (s *Store) MarkSynced(ctx context.Context, localID string) error {
	return s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		for i := range records {
			if records[i].ID == localID {
				if records[i].Synced {
					return nil, nil
				}
				records[i].Synced = true
				return records, nil
			}
		}
		return nil, nil
	})
}

// Remove deletes the record with the given local id and reports whether one
// was found and removed.
func (s *Store) Remove(ctx context.Context, localID string) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		for i := range records {
			if records[i].ID == localID {
				removed = true
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// MutateStatus sets the record's status and appends a status-change action
// capturing the old and new values. An absent id returns without effect;
// callers are expected to have validated existence.
func (s *Store) MutateStatus(ctx context.Context, localID, newStatus string) error {
	return s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		for i := range records {
			if records[i].ID != localID {
				continue
			}
			old := records[i].Status
			records[i].AppendAction(model.NewAction(model.ActionStatusChange, "", map[string]string{
				"old": old,
				"new": newStatus,
			}))
			records[i].Status = newStatus
			return records, nil
		}
		return nil, nil
	})
}

// AppendHistory adds a history entry to a local record and reports whether
// the record was found.
func (s *Store) AppendHistory(ctx context.Context, localID string, a model.Action) (bool, error) {
	found := false
	err := s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		for i := range records {
			if records[i].ID == localID {
				found = true
				records[i].AppendAction(a)
				return records, nil
			}
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// RemoveAction deletes a single history entry from a local record and
// reports whether it was found.
func (s *Store) RemoveAction(ctx context.Context, localID, actionID string) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		for i := range records {
			if records[i].ID != localID {
				continue
			}
			if records[i].RemoveAction(actionID) {
				removed = true
				return records, nil
			}
			return nil, nil
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
