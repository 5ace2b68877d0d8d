package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"messagemaster/internal/alerts"
	"messagemaster/internal/config"
	"messagemaster/internal/db"
	"messagemaster/internal/gateway"
	"messagemaster/internal/notify"
	"messagemaster/internal/service"
	"messagemaster/internal/session"
	"messagemaster/internal/store"
)

// app is everything a subcommand needs, wired from the environment.
type app struct {
	cfg    config.Config
	sqdb   *sql.DB
	sess   *session.Store
	client *gateway.Client
	poller *alerts.Poller
	svc    *service.Service
}

func openApp(ctx context.Context, chime notify.Chime) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	target := cfg.SessionDBPath
	if cfg.SessionDBDriver != string(db.DialectSQLite) {
		target = cfg.SessionDBDSN
	}
	sqdb, dialect, err := db.Open(cfg.SessionDBDriver, target, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.ApplyMigrationsDir(sqdb, cfg.MigrationsDir); err != nil {
		_ = sqdb.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	sess := session.New(store.New(sqdb, dialect), cfg.SessionEncryptKey)
	if err := sess.Load(ctx); err != nil {
		_ = sqdb.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	client := gateway.New(sess, gateway.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout(),
		RatePerSec: cfg.APIRatePerSec,
		Burst:      cfg.APIRateBurst,
		OnSessionExpired: func() {
			log.Printf("session expired redirect=/login delay_sec=%d", cfg.SessionExpiredDelay)
		},
	})
	if chime == nil {
		chime = notify.NewChime(cfg)
	}
	return &app{
		cfg:    cfg,
		sqdb:   sqdb,
		sess:   sess,
		client: client,
		poller: alerts.NewPoller(client, chime, cfg.AlertInterval()),
		svc:    service.New(client),
	}, nil
}

// followSession runs the poller exactly while someone is signed in.
func (a *app) followSession(ctx context.Context) {
	a.sess.Subscribe(func(ev session.Event) {
		switch ev.Kind {
		case session.EventLoggedIn:
			a.poller.Start(ctx)
		case session.EventLoggedOut:
			a.poller.Stop()
		}
	})
	if _, ok := a.sess.Active(ctx); ok {
		a.poller.Start(ctx)
	}
}

func (a *app) Close() {
	a.poller.Stop()
	a.poller.Wait()
	if err := a.sqdb.Close(); err != nil {
		log.Printf("close session db error=%q", err.Error())
	}
}
