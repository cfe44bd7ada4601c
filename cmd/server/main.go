package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "modernc.org/sqlite"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/adapters/clubflow/standin"
	emailPkg "fitrit/internal/adapters/email"
	"fitrit/internal/adapters/google"
	web "fitrit/internal/adapters/http"
	"fitrit/internal/adapters/storage"
	auditStore "fitrit/internal/adapters/storage/audit"
	"fitrit/internal/adapters/storage/clientstorage"
	"fitrit/internal/adapters/telemetry"
	"fitrit/internal/application/orchestrators"
	"fitrit/internal/application/viewerstate"
	"fitrit/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const serviceName = "fitrit-portal"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	configureLogging(cfg)
	displayBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, serviceName, cfg.OTLP.Endpoint, cfg.OTLP.Insecure)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("telemetry_event", "event", "shutdown_failed", "error", err)
		}
	}()

	// Initialize database with WAL mode and busy timeout
	dsn := cfg.Storage.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var viewers *viewerstate.Registry
	metrics := telemetry.NewMetrics(func() int { return viewers.Len() })
	timedDB := storage.NewTimedDB(db, metrics, storage.DefaultSlowQuery)
	audits := auditStore.NewSQLiteStore(timedDB)

	ready := func(ctx context.Context) error { return db.PingContext(ctx) }
	var durable clientstorage.Store = clientstorage.NewSQLiteStore(timedDB)
	if cfg.Storage.Backend == config.BackendRedis {
		rs, err := clientstorage.NewRedisStoreFromURL(cfg.Storage.RedisURL, "")
		if err != nil {
			return err
		}
		defer rs.Close()
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		durable = rs
		ready = func(ctx context.Context) error {
			return errors.Join(db.PingContext(ctx), rs.Ping(ctx))
		}
	}

	clubflowURL := cfg.ClubFlow.BaseURL
	if clubflowURL == "" {
		url, stopStandin, err := startStandin()
		if err != nil {
			return err
		}
		defer stopStandin()
		clubflowURL = url
	}
	client := clubflow.New(clubflowURL,
		clubflow.WithTimeout(cfg.ClubFlow.Timeout),
		clubflow.WithObserver(metrics),
	)

	auditor := orchestrators.SessionAuditor(audits, metrics)
	viewers = viewerstate.NewRegistry(durable, viewerstate.Options{
		HydrationTimeout: cfg.Session.HydrationTimeout,
		IdleTTL:          cfg.Session.IdleTTL,
		OnCreate: func(v *viewerstate.Viewer) {
			v.Session.Subscribe(auditor)
		},
	})
	go viewers.Run(ctx, time.Minute)

	deps := web.Deps{
		Config:     cfg,
		Viewers:    viewers,
		ClubFlow:   client,
		Challenges: google.NewChallengeStore(),
		Email:      newEmailSender(cfg),
		Audit:      audits,
		Metrics:    metrics,
		Ready:      ready,
	}
	if cfg.Google.Enabled() {
		provider, err := google.NewProvider(ctx, google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		if err != nil {
			return fmt.Errorf("google sign-in: %w", err)
		}
		deps.Google = provider
		slog.Info("auth_event", "event", "google_enabled")
	}

	srv, err := web.New(deps)
	if err != nil {
		return err
	}
	go srv.Run(ctx)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("FitRit %s starting on %s (env=%s, schema=%d, storage=%s)", version, cfg.Addr, cfg.Env, storage.LatestSchemaVersion(), cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// configureLogging uses JSON logs in production and verbose text logs elsewhere.
func configureLogging(cfg config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

func displayBanner() {
	figure.NewFigure("FitRit", "cybermedium", true).Print()
	fmt.Println()
}

// startStandin serves the in-process ClubFlow on a loopback port.
func startStandin() (string, func(), error) {
	cf, err := standin.New(standin.Options{})
	if err != nil {
		return "", nil, fmt.Errorf("clubflow stand-in: %w", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("clubflow stand-in listener: %w", err)
	}
	s := &http.Server{Handler: cf.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("standin_failed", "error", err)
		}
	}()
	url := "http://" + ln.Addr().String()
	slog.Warn("config_warning", "event", "clubflow_standin", "url", url, "password", standin.DevPassword)
	return url, func() { s.Close() }, nil
}

func newEmailSender(cfg config.Config) emailPkg.Sender {
	if cfg.Email.ResendKey != "" {
		log.Println("Email sender configured (Resend)")
		return emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
	}
	if cfg.IsProduction() {
		log.Println("WARNING: FITRIT_RESEND_KEY is not set, contact enquiries will not be delivered")
	} else {
		log.Println("Email sender configured (noop, set FITRIT_RESEND_KEY for real delivery)")
	}
	return emailPkg.NewNoopSender()
}
