// Command server runs the mail directory admin API.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	dirhandler "mailkeep/internal/directory/handler"
	"mailkeep/internal/directory/metrics"
	"mailkeep/internal/directory/service"
	"mailkeep/internal/directory/store"
	"mailkeep/internal/directory/store/memory"
	"mailkeep/internal/directory/store/postgres"
	"mailkeep/internal/dovecot"
	"mailkeep/internal/jwtauth"
	"mailkeep/internal/platform/config"
	"mailkeep/internal/platform/httpserver"
	"mailkeep/internal/platform/logger"
	"mailkeep/internal/platform/middleware"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the directory service.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	users, aliases, cleanup, err := buildStores(cfg)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	doveadm := dovecot.NewClient("")
	svc := service.New(cfg.PrimaryHostname, users, aliases, service.Collaborators{
		Hasher:    doveadm,
		Mailboxes: doveadm,
		Archive:   dovecot.NewEnumerator(cfg.StorageRoot),
	},
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	)

	tokens := jwtauth.NewService(cfg.JWTSigningKey, "mailkeep")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(tokens, log))
		dirhandler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting mailkeep", "addr", cfg.Addr, "primary_hostname", cfg.PrimaryHostname)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildStores opens the configured backing store. Without DATABASE_URL the
// directory runs on volatile in-memory stores, which is only useful for
// local development.
func buildStores(cfg config.Server) (store.UserStore, store.AliasStore, func(), error) {
	if cfg.DatabaseURL == "" {
		return memory.NewUserStore(), memory.NewAliasStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return postgres.NewUserStore(db), postgres.NewAliasStore(db), func() { _ = db.Close() }, nil
}
