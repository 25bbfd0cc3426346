// Package cli implements the interactive REPL the field workers use: listing
// the merged record view, authoring records and actions offline, and
// triggering manual sync passes.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"github.com/agrotrack/fieldsync/internal/cache"
	"github.com/agrotrack/fieldsync/internal/config"
	"github.com/agrotrack/fieldsync/internal/gateway"
	"github.com/agrotrack/fieldsync/internal/kv"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/service"
	"github.com/agrotrack/fieldsync/internal/session"
	"github.com/agrotrack/fieldsync/internal/store"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	gw      *gateway.Gateway
	sess    *session.Session
	records *service.RecordService
	syncSvc *service.SyncService
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, repo, err := kv.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "failed to initialize database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	gw := gateway.New(c.ServerBaseURL, log)
	st := store.New(db, log)
	ch := cache.New(repo, c.CacheTTL, log)
	sess := session.New(log)

	return &App{
		config:  c,
		db:      db,
		gw:      gw,
		sess:    sess,
		records: service.NewRecordService(gw, st, ch, sess, log),
		syncSvc: service.NewSyncService(gw, st, ch, sess, repo, log),
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	go a.sess.StartWatcher(ctx, a.gw, a.config.OnlineCheckInterval)

	a.Root(ctx)
}
