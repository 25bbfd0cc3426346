package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/agrotrack/fieldsync/internal/common"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"
	"github.com/agrotrack/fieldsync/internal/session"
)

// RecordService is the single read/write surface the UI layer talks to for
// records. Reads merge server truth (live, cached or stale) with unsynced
// local records; writes go to the server when online and fall back to the
// local store otherwise.
type RecordService struct {
	gw    Gateway
	store LocalStore
	cache Cache
	sess  *session.Session
	log   logging.Logger
}

func NewRecordService(gw Gateway, store LocalStore, cache Cache, sess *session.Session, log logging.Logger) *RecordService {
	return &RecordService{gw: gw, store: store, cache: cache, sess: sess, log: log}
}

// ListMerged returns the single ordered view of all records visible to
// owner, newest first. It never fails: offline is a normal operating mode,
// so network trouble degrades to cached or local-only data and is only
// logged.
func (s *RecordService) ListMerged(ctx context.Context, owner string, forceRefresh bool) []model.Record {
	server := s.serverList(ctx, owner, forceRefresh)
	local := s.store.ListLocal(ctx, owner)

	// Local unsynced entries are user intent the server has not seen yet:
	// they join the view and shadow a server copy with the same identity.
	// Local entries already marked synced are superseded and excluded; the
	// canonical server copy reappears with the next fresh fetch.
	shadow := make(map[string]model.Record)
	for _, r := range local {
		if !r.Synced {
			shadow[r.ID] = r
		}
	}

	merged := make([]model.Record, 0, len(server)+len(shadow))
	for _, r := range server {
		if overlay, ok := shadow[r.ID]; ok {
			delete(shadow, r.ID)
			if !overlay.Deleted() {
				merged = append(merged, overlay)
			}
			continue
		}
		if !r.Deleted() {
			merged = append(merged, r)
		}
	}
	for _, r := range local {
		if overlay, ok := shadow[r.ID]; ok && !overlay.Deleted() {
			merged = append(merged, overlay)
		}
	}

	sortByCreatedAtDesc(merged)
	return merged
}

// serverList resolves the server-side base of the merge: fresh cache unless
// a refresh is forced, then a live fetch when online, then the stale cache,
// then nothing.
func (s *RecordService) serverList(ctx context.Context, owner string, forceRefresh bool) []model.Record {
	if !forceRefresh {
		if records, ok := s.cache.Get(ctx, owner); ok {
			return records
		}
	}

	if s.sess.Online() {
		records, err := s.gw.List(ctx, owner)
		if err == nil {
			if err := s.cache.Put(ctx, owner, records); err != nil {
				s.log.Warn(ctx, "failed to cache server records", "owner", owner, "error", err)
			}
			return records
		}
		s.log.Warn(ctx, "live fetch failed, falling back to cache", "owner", owner, "error", err)
	}

	if records, ok := s.cache.GetStale(ctx, owner); ok {
		return records
	}
	return nil
}

// Create stores a new record: directly on the server when online (the
// server copy comes back canonical and already synced), otherwise — or when
// the online attempt fails — in the local store with a local identity,
// awaiting the next sync pass.
func (s *RecordService) Create(ctx context.Context, rec model.Record) (model.Record, error) {
	if rec.Owner == "" {
		rec.Owner = s.sess.Owner()
	}
	if rec.Owner == "" {
		return model.Record{}, common.ErrNoUser
	}

	if s.sess.Online() {
		created, err := s.gw.Create(ctx, rec.Owner, rec)
		if err == nil {
			s.invalidate(ctx, rec.Owner)
			return created, nil
		}
		s.log.Warn(ctx, "online create failed, storing locally", "owner", rec.Owner, "error", err)
	}

	return s.store.Append(ctx, rec)
}

// UpdateStatus changes a record's status. Local records mutate in place;
// server records go through the remote API and require connectivity. On a
// remote failure the error propagates so the caller can offer the
// apply-locally recovery path (ApplyStatusLocally).
func (s *RecordService) UpdateStatus(ctx context.Context, rec model.Record, newStatus string) error {
	if model.IsLocalID(rec.ID) {
		return s.store.MutateStatus(ctx, rec.ID, newStatus)
	}

	if !s.sess.Online() {
		return common.ErrNoConnection
	}

	if _, err := s.gw.UpdateStatus(ctx, rec.Owner, rec.ID, newStatus); err != nil {
		return fmt.Errorf("failed to update status of %s: %w", rec.ID, err)
	}
	s.invalidate(ctx, rec.Owner)
	return nil
}

// ApplyStatusLocally is the recovery path for a failed remote update: the
// change lands in the local store instead. For a server record this writes
// a local overlay under the same identity; the overlay shadows the server
// copy in merged reads and the next sync pass pushes it as an update.
func (s *RecordService) ApplyStatusLocally(ctx context.Context, rec model.Record, newStatus string) error {
	if model.IsLocalID(rec.ID) {
		return s.store.MutateStatus(ctx, rec.ID, newStatus)
	}

	overlay := rec
	overlay.AppendAction(model.NewAction(model.ActionStatusChange, "", map[string]string{
		"old": rec.Status,
		"new": newStatus,
	}))
	overlay.Status = newStatus

	_, err := s.store.Append(ctx, overlay)
	return err
}

// Delete removes a record. Local records leave the store directly. Server
// records are deleted remotely; a not-found answer counts as already
// deleted (soft success). Remote failures propagate so the caller can fall
// back to SoftDeleteLocally.
func (s *RecordService) Delete(ctx context.Context, rec model.Record) error {
	if model.IsLocalID(rec.ID) {
		removed, err := s.store.Remove(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !removed {
			return common.ErrNotFound
		}
		return nil
	}

	if !s.sess.Online() {
		return common.ErrNoConnection
	}

	err := s.gw.DeleteRecord(ctx, rec.Owner, rec.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to delete %s: %w", rec.ID, err)
	}
	if errors.Is(err, common.ErrNotFound) {
		s.log.Info(ctx, "record already gone server-side, treating delete as done", "record", rec.ID)
	}
	s.invalidate(ctx, rec.Owner)
	return nil
}

// SoftDeleteLocally marks a server record with the terminal status in the
// local store. Merged reads hide it immediately; the next sync pass
// replays the deletion against the server.
func (s *RecordService) SoftDeleteLocally(ctx context.Context, rec model.Record) error {
	return s.ApplyStatusLocally(ctx, rec, model.StatusDeleted)
}

// AddAction appends a history entry. Local records mutate in place. The
// server API has no append endpoint, so for a server record the entry lands
// on a local overlay that shadows the server copy until the next sync pass.
func (s *RecordService) AddAction(ctx context.Context, rec model.Record, a model.Action) error {
	if model.IsLocalID(rec.ID) {
		found, err := s.store.AppendHistory(ctx, rec.ID, a)
		if err != nil {
			return err
		}
		if !found {
			return common.ErrNotFound
		}
		return nil
	}

	overlay := rec
	overlay.AppendAction(a)
	_, err := s.store.Append(ctx, overlay)
	return err
}

// DeleteAction removes one history entry, locally or remotely depending on
// where the record lives. A remote not-found is a soft success.
func (s *RecordService) DeleteAction(ctx context.Context, rec model.Record, actionID string) error {
	if model.IsLocalID(rec.ID) {
		removed, err := s.store.RemoveAction(ctx, rec.ID, actionID)
		if err != nil {
			return err
		}
		if !removed {
			return common.ErrNotFound
		}
		return nil
	}

	if !s.sess.Online() {
		return common.ErrNoConnection
	}

	err := s.gw.DeleteAction(ctx, rec.Owner, rec.ID, actionID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to delete action %s: %w", actionID, err)
	}
	s.invalidate(ctx, rec.Owner)
	return nil
}

// PendingCount returns how many of owner's records still await a push.
func (s *RecordService) PendingCount(ctx context.Context, owner string) int {
	return len(s.store.ListPending(ctx, owner))
}

func (s *RecordService) invalidate(ctx context.Context, owner string) {
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		s.log.Warn(ctx, "failed to invalidate cache", "owner", owner, "error", err)
	}
}

// sortByCreatedAtDesc orders newest first, stably; zero timestamps sort as
// oldest.
func sortByCreatedAtDesc(records []model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].CreatedAt, records[j].CreatedAt
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.After(b)
	})
}
