package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/netutil"

	"millaudit/internal/adapters/filestore"
	httpadapter "millaudit/internal/adapters/http"
	"millaudit/internal/adapters/memory"
	pg "millaudit/internal/adapters/postgres"
	"millaudit/internal/config"
	"millaudit/internal/ports"
	"millaudit/internal/scoring"
	auditsvc "millaudit/internal/services/audits"
	templatesvc "millaudit/internal/services/templates"
	"millaudit/internal/workers/verifier"
)

// store bundles every persistence port so either backend can be swapped in.
type store interface {
	ports.TemplateRepository
	ports.TemplateWriter
	ports.SubmissionRepository
	ports.SessionStore
	ports.VerificationQueue
}

type memoryStore struct {
	*memory.Store
	*memory.Queue
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func main() {
	cfg, cfgErr := config.Load()
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoDatabase) {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st store
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; using in-memory storage")
		st = memoryStore{memory.New(), memory.NewQueue()}
	} else {
		db, err := pg.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			log.Fatal("db connect error", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx, log); err != nil {
			log.Fatal("db migrate error", zap.Error(err))
		}
		st = db
	}

	engine := scoring.New(cfg.EngineOptions()...)
	templates := templatesvc.New(st, st, log.Named("templates"))
	audits := auditsvc.New(st, st, st, st,
		auditsvc.WithEngine(engine),
		auditsvc.WithLogger(log.Named("audits")))

	if cfg.TemplateDir != "" {
		ts, err := filestore.LoadDir(cfg.TemplateDir)
		if err != nil {
			log.Fatal("load seed templates", zap.Error(err))
		}
		n, err := templates.Seed(ctx, ts)
		if err != nil {
			log.Fatal("seed templates", zap.Error(err))
		}
		log.Info("seed templates loaded", zap.String("dir", cfg.TemplateDir), zap.Int("found", len(ts)), zap.Int("published", n))
	}

	var workers sync.WaitGroup
	if cfg.VerifyWorkers > 0 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			verifier.Run(ctx, st, verifier.VerifyProcessor{Verifier: audits}, cfg.VerifyWorkers, cfg.VerifyPollInterval, log.Named("verifier"))
		}()
		log.Info("verification workers started", zap.Int("workers", cfg.VerifyWorkers))
	}

	srv := &http.Server{
		Handler:           httpadapter.New(audits, templates, st, log.Named("http")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal("listen", zap.String("addr", cfg.ListenAddr), zap.Error(err))
	}
	if cfg.MaxInFlight > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxInFlight)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env), zap.String("unanswered_policy", string(cfg.Unanswered)))

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	workers.Wait()
}
