package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agrotrack/fieldsync/internal/common"
	"github.com/agrotrack/fieldsync/internal/kv"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"
	"github.com/agrotrack/fieldsync/internal/session"
)

// lastSyncKey is the kv key carrying the serialized SyncMetadata.
const lastSyncKey = "lastSync"

// SyncError describes one record that could not be pushed during a pass.
// Reasons are surfaced only in the pass summary; the record simply stays
// pending and is retried on the next manual pass.
type SyncError struct {
	RecordID string `json:"recordId"`
	Message  string `json:"message"`
}

// Result summarizes a completed sync pass. A pass always completes with a
// summary; a single failing record never aborts the batch.
type Result struct {
	SuccessCount int         `json:"successCount"`
	ErrorCount   int         `json:"errorCount"`
	Errors       []SyncError `json:"errors,omitempty"`
}

// SyncService drives the manual, user-triggered push of pending local
// records. A pass is single-flight: preconditions (connection, identified
// owner, nothing already running) abort with a typed reason before any
// state is touched, and records are submitted strictly sequentially so
// progress stays monotonic and server load bounded.
type SyncService struct {
	gw    Gateway
	store LocalStore
	cache Cache
	sess  *session.Session
	meta  kv.Repository
	log   logging.Logger

	mu       sync.Mutex
	running  bool
	progress atomic.Int32
}

func NewSyncService(gw Gateway, store LocalStore, cache Cache, sess *session.Session, meta kv.Repository, log logging.Logger) *SyncService {
	return &SyncService{gw: gw, store: store, cache: cache, sess: sess, meta: meta, log: log}
}

// Running reports whether a pass is currently in flight.
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Progress returns the current pass's progress in percent (0–100).
func (s *SyncService) Progress() int {
	return int(s.progress.Load())
}

// Run executes one sync pass and returns its summary. Typed abort errors:
// common.ErrSyncRunning, common.ErrNoUser, common.ErrNoConnection.
func (s *SyncService) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, common.ErrSyncRunning
	}

	owner := s.sess.Owner()
	if owner == "" {
		s.mu.Unlock()
		return nil, common.ErrNoUser
	}
	if !s.sess.Online() {
		s.mu.Unlock()
		return nil, common.ErrNoConnection
	}

	s.running = true
	s.progress.Store(0)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	result := &Result{}
	pending := s.store.ListPending(ctx, owner)

	if len(pending) == 0 {
		// nothing to do still counts as synchronized
		s.progress.Store(100)
		s.touchLastSync(ctx)
		s.log.Info(ctx, "sync pass finished with nothing pending", "owner", owner)
		return result, nil
	}

	total := len(pending)
	for i, rec := range pending {
		if err := s.push(ctx, owner, rec); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, SyncError{RecordID: rec.ID, Message: err.Error()})
			s.log.Warn(ctx, "failed to push record", "record", rec.ID, "error", err)
		} else {
			result.SuccessCount++
		}
		s.progress.Store(int32((i + 1) * 100 / total))
	}

	s.touchLastSync(ctx)
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		s.log.Warn(ctx, "failed to invalidate cache after sync", "owner", owner, "error", err)
	}

	s.log.Info(ctx, "sync pass finished",
		"owner", owner,
		"succeeded", result.SuccessCount,
		"failed", result.ErrorCount,
	)
	return result, nil
}

// push submits a single pending record. The verb depends on what the record
// is: a soft-deleted server record replays the deletion, a pending server
// overlay replays its status, and everything else is a fresh create. On
// success the record's local copy is marked synced (or dropped, once a
// deletion is confirmed).
func (s *SyncService) push(ctx context.Context, owner string, rec model.Record) error {
	switch {
	case rec.Deleted() && !model.IsLocalID(rec.ID):
		err := s.gw.DeleteRecord(ctx, owner, rec.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if _, err := s.store.Remove(ctx, rec.ID); err != nil {
			return err
		}
		return nil

	case rec.Deleted():
		// a soft-deleted record the server never saw: nothing to replay
		if _, err := s.store.Remove(ctx, rec.ID); err != nil {
			return err
		}
		return nil

	case !model.IsLocalID(rec.ID):
		if _, err := s.gw.UpdateStatus(ctx, owner, rec.ID, rec.Status); err != nil {
			return err
		}
		return s.store.MarkSynced(ctx, rec.ID)

	default:
		if _, err := s.gw.Create(ctx, owner, rec); err != nil {
			return err
		}
		return s.store.MarkSynced(ctx, rec.ID)
	}
}

// touchLastSync stamps the last-sync marker. Failing to persist it does not
// fail the pass; the next pass will stamp again.
func (s *SyncService) touchLastSync(ctx context.Context) {
	now := time.Now().UTC()
	meta := model.SyncMetadata{LastSyncTimestamp: &now}

	raw, err := json.Marshal(meta)
	if err != nil {
		s.log.Warn(ctx, "failed to encode sync metadata", "error", err)
		return
	}
	if err := s.meta.Set(ctx, lastSyncKey, raw); err != nil {
		s.log.Warn(ctx, "failed to persist sync metadata", "error", err)
	}
}

// LastSync loads the last-sync marker; the zero value means no pass has
// ever completed.
func (s *SyncService) LastSync(ctx context.Context) (model.SyncMetadata, error) {
	raw, err := s.meta.Get(ctx, lastSyncKey)
	if err != nil {
		return model.SyncMetadata{}, fmt.Errorf("failed to read sync metadata: %w", err)
	}
	if raw == nil {
		return model.SyncMetadata{}, nil
	}

	var meta model.SyncMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return model.SyncMetadata{}, fmt.Errorf("failed to decode sync metadata: %w", err)
	}
	return meta, nil
}

// LastSyncDescription renders the status line shown in the UI. Read
// failures degrade to "never synchronized" rather than surfacing an error.
func (s *SyncService) LastSyncDescription(ctx context.Context) string {
	meta, err := s.LastSync(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to load sync metadata", "error", err)
		return model.SyncMetadata{}.Description()
	}
	return meta.Description()
}
