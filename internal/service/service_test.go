package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agrotrack/fieldsync/internal/cache"
	"github.com/agrotrack/fieldsync/internal/gateway"
	"github.com/agrotrack/fieldsync/internal/kv"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"
	"github.com/agrotrack/fieldsync/internal/session"
	"github.com/agrotrack/fieldsync/internal/store"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeGateway is an in-memory stand-in for the remote API. Failure hooks
// let tests fail individual calls.
type fakeGateway struct {
	serverRecords []model.Record

	listCalls int
	listErr   error

	createSeq    int
	createFailOn map[int]error // 1-based call index -> error
	created      []model.Record

	updateErr     error
	updatedStatus map[string]string

	deleteErr error
	deleted   []string

	deletedActions []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		createFailOn:  map[int]error{},
		updatedStatus: map[string]string{},
	}
}

func (g *fakeGateway) List(ctx context.Context, ownerID string) ([]model.Record, error) {
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]model.Record, len(g.serverRecords))
	copy(out, g.serverRecords)
	for i := range out {
		out[i].Provenance = model.ProvenanceServer
		out[i].Synced = true
	}
	return out, nil
}

func (g *fakeGateway) Create(ctx context.Context, ownerID string, rec model.Record) (model.Record, error) {
	g.createSeq++
	if err, ok := g.createFailOn[g.createSeq]; ok {
		return model.Record{}, err
	}
	rec.ID = fmt.Sprintf("srv-%d", g.createSeq)
	rec.Provenance = model.ProvenanceServer
	rec.Synced = true
	g.created = append(g.created, rec)
	g.serverRecords = append(g.serverRecords, rec)
	return rec, nil
}

func (g *fakeGateway) UpdateStatus(ctx context.Context, ownerID, recordID, newStatus string) (model.Record, error) {
	if g.updateErr != nil {
		return model.Record{}, g.updateErr
	}
	g.updatedStatus[recordID] = newStatus
	return model.Record{ID: recordID, Owner: ownerID, Crop: "x", Status: newStatus,
		Provenance: model.ProvenanceServer, Synced: true}, nil
}

func (g *fakeGateway) DeleteRecord(ctx context.Context, ownerID, recordID string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, recordID)
	return nil
}

func (g *fakeGateway) DeleteAction(ctx context.Context, ownerID, recordID, actionID string) error {
	g.deletedActions = append(g.deletedActions, recordID+"/"+actionID)
	return nil
}

var _ Gateway = (*fakeGateway)(nil)
var _ Gateway = (*gateway.Gateway)(nil)

// fixture wires a fake gateway to real store/cache/session over an
// in-memory database.
type fixture struct {
	gw      *fakeGateway
	store   *store.Store
	cache   *cache.Cache
	sess    *session.Session
	records *RecordService
	sync    *SyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, kv.RunMigrations(context.Background(), db))

	log := testLogger()
	repo := kv.NewSQLiteRepository(db)
	gw := newFakeGateway()
	st := store.New(db, log)
	c := cache.New(repo, cache.DefaultTTL, log)
	sess := session.New(log)
	sess.Init("u1")

	return &fixture{
		gw:      gw,
		store:   st,
		cache:   c,
		sess:    sess,
		records: NewRecordService(gw, st, c, sess, log),
		sync:    NewSyncService(gw, st, c, sess, repo, log),
	}
}

func serverRecord(id, owner, crop string, createdAt time.Time) model.Record {
	return model.Record{
		ID: id, Owner: owner, Crop: crop,
		Provenance: model.ProvenanceServer, Synced: true, CreatedAt: createdAt,
	}
}
