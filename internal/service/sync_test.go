package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrack/fieldsync/internal/common"
	"github.com/agrotrack/fieldsync/internal/gateway"
	"github.com/agrotrack/fieldsync/internal/model"
)

func TestSync_AbortsOffline(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrNoConnection)
}

func TestSync_AbortsWithoutOwner(t *testing.T) {
	f := newFixture(t)
	f.sess.Teardown()
	f.sess.SetOnline(true)

	_, err := f.sync.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrNoUser)
}

func TestSync_AbortsWhileAnotherPassRuns(t *testing.T) {
	f := newFixture(t)
	f.sess.SetOnline(true)

	f.sync.mu.Lock()
	f.sync.running = true
	f.sync.mu.Unlock()

	_, err := f.sync.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrSyncRunning)

	f.sync.mu.Lock()
	f.sync.running = false
	f.sync.mu.Unlock()
}

func TestSync_AbortDoesNotTouchLastSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sync.Run(ctx)
	require.ErrorIs(t, err, common.ErrNoConnection)

	meta, err := f.sync.LastSync(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta.LastSyncTimestamp)
	assert.Equal(t, "never synchronized", f.sync.LastSyncDescription(ctx))
}

func TestSync_EmptyPassStillStampsLastSync(t *testing.T) {
	f := newFixture(t)
	f.sess.SetOnline(true)
	ctx := context.Background()

	res, err := f.sync.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 0, res.ErrorCount)
	assert.Equal(t, 100, f.sync.Progress())

	meta, err := f.sync.LastSync(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta.LastSyncTimestamp)
	assert.WithinDuration(t, time.Now().UTC(), *meta.LastSyncTimestamp, 5*time.Second)
}

func TestSync_PushesPendingCreates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, crop := range []string{"Maize", "Wheat"} {
		_, err := f.store.Append(ctx, model.Record{Owner: "u1", Crop: crop})
		require.NoError(t, err)
	}

	f.sess.SetOnline(true)
	res, err := f.sync.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 0, res.ErrorCount)
	assert.Len(t, f.gw.created, 2)
	assert.Zero(t, f.records.PendingCount(ctx, "u1"))
	assert.Equal(t, 100, f.sync.Progress())
}

func TestSync_SecondRunHasNothingToPush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)

	f.sess.SetOnline(true)
	first, err := f.sync.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.SuccessCount)

	second, err := f.sync.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.SuccessCount)
	assert.Equal(t, 0, second.ErrorCount)
	assert.Equal(t, 1, f.gw.createSeq, "an already-pushed record must not be submitted again")
}

func TestSync_PartialFailureIsolatesTheFailingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, crop := range []string{"Maize", "Wheat", "Barley"} {
		rec, err := f.store.Append(ctx, model.Record{Owner: "u1", Crop: crop})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	f.gw.createFailOn[2] = gateway.ErrNetwork

	f.sess.SetOnline(true)
	res, err := f.sync.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ids[1], res.Errors[0].RecordID)

	pending := f.store.ListPending(ctx, "u1")
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].ID)

	// the failed record goes through on the next pass
	res, err = f.sync.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Zero(t, f.records.PendingCount(ctx, "u1"))
}

func TestSync_PushesServerOverlayAsStatusUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	overlay := serverRecord("srv-9", "u1", "Wheat", time.Now().UTC())
	overlay.Status = "harvested"
	_, err := f.store.Append(ctx, overlay)
	require.NoError(t, err)

	f.sess.SetOnline(true)
	res, err := f.sync.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, "harvested", f.gw.updatedStatus["srv-9"])
	assert.Zero(t, f.gw.createSeq, "an overlay must never be pushed as a new record")
	assert.Zero(t, f.records.PendingCount(ctx, "u1"))
}

func TestSync_ReplaysSoftDeletedServerRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tomb := serverRecord("srv-9", "u1", "Wheat", time.Now().UTC())
	tomb.Status = model.StatusDeleted
	_, err := f.store.Append(ctx, tomb)
	require.NoError(t, err)

	f.sess.SetOnline(true)
	res, err := f.sync.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, []string{"srv-9"}, f.gw.deleted)
	assert.Empty(t, f.store.ListLocal(ctx, "u1"), "a confirmed deletion drops the local copy entirely")
}

func TestSync_DeletedLocalOnlyRecordIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.store.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)
	require.NoError(t, f.store.MutateStatus(ctx, rec.ID, model.StatusDeleted))

	f.sess.SetOnline(true)
	res, err := f.sync.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Empty(t, f.gw.deleted, "the server never saw this record")
	assert.Empty(t, f.gw.created)
	assert.Empty(t, f.store.ListLocal(ctx, "u1"))
}

func TestSync_DeleteNotFoundCountsAsSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tomb := serverRecord("srv-9", "u1", "Wheat", time.Now().UTC())
	tomb.Status = model.StatusDeleted
	_, err := f.store.Append(ctx, tomb)
	require.NoError(t, err)

	f.gw.deleteErr = common.ErrNotFound

	f.sess.SetOnline(true)
	res, err := f.sync.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Empty(t, f.store.ListLocal(ctx, "u1"))
}

func TestSync_InvalidatesCacheAfterPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cache.Put(ctx, "u1", []model.Record{serverRecord("srv-1", "u1", "Wheat", time.Now().UTC())}))
	_, err := f.store.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)

	f.sess.SetOnline(true)
	_, err = f.sync.Run(ctx)
	require.NoError(t, err)

	_, ok := f.cache.Get(ctx, "u1")
	assert.False(t, ok, "a completed pass must force the next read to refetch")
}

func TestSync_LastSyncDescriptionAfterPass(t *testing.T) {
	f := newFixture(t)
	f.sess.SetOnline(true)
	ctx := context.Background()

	_, err := f.sync.Run(ctx)
	require.NoError(t, err)

	desc := f.sync.LastSyncDescription(ctx)
	assert.Contains(t, desc, "last synchronized")
}
