package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/existflow/taskprox/internal/api"
	"github.com/existflow/taskprox/internal/config"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/service"
	"github.com/existflow/taskprox/internal/session"
	"github.com/existflow/taskprox/internal/store"
)

// app bundles what a command needs to talk to the server
type app struct {
	db      *store.DB
	session *session.Session
	client  *api.Client
	svc     *service.Service
}

// openSession opens the local store and restores any previous login
func openSession(ctx context.Context) (*store.DB, *session.Session, error) {
	db, err := store.OpenDefault()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	dir, err := config.Dir()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	sess := session.New(session.Options{
		Store:      db,
		SecretPath: filepath.Join(dir, "secret"),
		CheckDelay: cfg.SessionCheckDelay,
	})
	if err := sess.Restore(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
		logger.Warn("Failed to restore session", logger.F("error", err))
	}
	return db, sess, nil
}

// openApp wires store, session, client and service. With requireLogin the
// session must be present and unexpired.
func openApp(ctx context.Context, requireLogin bool) (*app, error) {
	db, sess, err := openSession(ctx)
	if err != nil {
		return nil, err
	}

	if requireLogin {
		if err := sess.Validate(ctx); err != nil {
			db.Close()
			if errors.Is(err, session.ErrNoSession) {
				return nil, fmt.Errorf("%w: run 'taskprox auth login' first", service.ErrNotLoggedIn)
			}
			return nil, err
		}
	}

	match, err := permission.ParseCreatorMatch(cfg.CreatorMatch)
	if err != nil {
		logger.Warn("Invalid creator_match, using default", logger.F("error", err))
		match = permission.MatchEmailOrName
	}

	client := api.NewClient(api.Options{
		BaseURL:    cfg.ServerURL,
		AuthPrefix: cfg.AuthPrefix,
		Timeout:    cfg.Timeout,
		Tokens:     sess,
	})
	logger.Debug("App opened",
		logger.F("server", client.BaseURL()),
		logger.F("logged_in", sess.LoggedIn()))

	return &app{
		db:      db,
		session: sess,
		client:  client,
		svc:     service.New(client, sess, permission.NewResolver(match)),
	}, nil
}

// Close releases the local store
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logger.Warn("Failed to close database", logger.F("error", err))
	}
}
