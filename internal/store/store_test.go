package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrack/fieldsync/internal/kv"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, kv.RunMigrations(context.Background(), db))

	return New(db, testLogger())
}

func TestAppend_AssignsIdentityAndFirstAction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize", Location: "North plot"})
	require.NoError(t, err)

	assert.True(t, model.IsLocalID(got.ID))
	assert.Equal(t, model.ProvenanceLocal, got.Provenance)
	assert.False(t, got.Synced)
	assert.False(t, got.CreatedAt.IsZero())

	require.Len(t, got.History, 1)
	assert.Equal(t, model.ActionSowing, got.History[0].Type)
	assert.Equal(t, "Siembra de cultivo", got.History[0].Description)
	assert.Equal(t, "Maize", got.History[0].Fields["seed"])

	stored := s.ListLocal(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, got.ID, stored[0].ID)
}

func TestAppend_KeepsProvidedHistory(t *testing.T) {
	s := newTestStore(t)

	rec := model.Record{Owner: "u1", Crop: "Wheat"}
	rec.AppendAction(model.NewAction(model.ActionIrrigation, "", nil))

	got, err := s.Append(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, model.ActionIrrigation, got.History[0].Type)
}

func TestAppend_RejectsInvalidRecord(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append(context.Background(), model.Record{Owner: "u1"})
	assert.Error(t, err)

	assert.Empty(t, s.ListLocal(context.Background(), "u1"))
}

func TestAppend_ReplacesExistingIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	overlay := model.Record{ID: "srv-1", Owner: "u1", Crop: "Wheat", Status: "growing"}
	_, err := s.Append(ctx, overlay)
	require.NoError(t, err)

	overlay.Status = "harvested"
	_, err = s.Append(ctx, overlay)
	require.NoError(t, err)

	stored := s.ListLocal(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, "harvested", stored[0].Status)
}

func TestAppendHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)

	found, err := s.AppendHistory(ctx, rec.ID, model.NewAction(model.ActionIrrigation, "", map[string]string{"volume": "20mm"}))
	require.NoError(t, err)
	assert.True(t, found)

	stored := s.ListLocal(ctx, "u1")
	require.Len(t, stored, 1)
	require.Len(t, stored[0].History, 2)
	assert.Equal(t, model.ActionIrrigation, stored[0].History[1].Type)
	assert.Equal(t, "Riego", stored[0].History[1].Description)

	found, err = s.AppendHistory(ctx, "missing", model.NewAction(model.ActionIrrigation, "", nil))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListLocal_FiltersByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)
	_, err = s.Append(ctx, model.Record{Owner: "u2", Crop: "Barley"})
	require.NoError(t, err)

	assert.Len(t, s.ListLocal(ctx, "u1"), 1)
	assert.Len(t, s.ListLocal(ctx, "u2"), 1)
	assert.Empty(t, s.ListLocal(ctx, "u3"))
}

func TestMarkSynced_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)
	require.Len(t, s.ListPending(ctx, "u1"), 1)

	require.NoError(t, s.MarkSynced(ctx, rec.ID))
	require.NoError(t, s.MarkSynced(ctx, rec.ID)) // second call is a no-op
	require.NoError(t, s.MarkSynced(ctx, "missing"))

	assert.Empty(t, s.ListPending(ctx, "u1"))
	stored := s.ListLocal(ctx, "u1")
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Synced)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)

	removed, err := s.Remove(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.ListLocal(ctx, "u1"))

	removed, err = s.Remove(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMutateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize", Status: "growing"})
	require.NoError(t, err)

	require.NoError(t, s.MutateStatus(ctx, rec.ID, "harvested"))

	stored := s.ListLocal(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Equal(t, "harvested", stored[0].Status)

	require.Len(t, stored[0].History, 2)
	last := stored[0].History[1]
	assert.Equal(t, model.ActionStatusChange, last.Type)
	assert.Equal(t, "growing", last.Fields["old"])
	assert.Equal(t, "harvested", last.Fields["new"])

	// absent id is silently ignored
	require.NoError(t, s.MutateStatus(ctx, "missing", "x"))
}

func TestRemoveAction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Append(ctx, model.Record{Owner: "u1", Crop: "Maize"})
	require.NoError(t, err)
	actionID := rec.History[0].ID

	removed, err := s.RemoveAction(ctx, rec.ID, actionID)
	require.NoError(t, err)
	assert.True(t, removed)

	stored := s.ListLocal(ctx, "u1")
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].History)

	removed, err = s.RemoveAction(ctx, rec.ID, actionID)
	require.NoError(t, err)
	assert.False(t, removed)
}
