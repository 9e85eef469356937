package devserver

import (
	"context"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/lock"
	"github.com/matheus3301/msgr/internal/logging"
	"github.com/matheus3301/msgr/internal/store"
)

// Params are the command-line overrides for the server.
type Params struct {
	EnvFile string
	Addr    string // overrides MSGRD_ADDR when set
	DBPath  string // overrides MSGRD_DB when set
	Stderr  bool
}

// Module returns the fx module for the reference server.
func Module(p Params) fx.Option {
	return fx.Module("devserver",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideStore,
			provideTokens,
			NewMetrics,
			NewAPI,
			NewRouter,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (Config, error) {
	cfg, err := LoadConfig(p.EnvFile)
	if err != nil {
		return Config{}, err
	}
	if p.Addr != "" {
		cfg.Addr = p.Addr
	}
	if p.DBPath != "" {
		cfg.DBPath = p.DBPath
	}
	return cfg, nil
}

func provideLogger(p Params, cfg Config) (*zap.Logger, error) {
	logPath := filepath.Join(filepath.Dir(cfg.DBPath), "msgrd.log")
	return logging.New(logPath, "server", logging.Options{Stderr: p.Stderr, Debug: cfg.Debug})
}

func provideLock(cfg Config, logger *zap.Logger) (*lock.Lock, error) {
	path := filepath.Join(filepath.Dir(cfg.DBPath), "msgrd.lock")
	l, err := lock.Acquire(path, "msgrd")
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired", zap.String("path", path))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two servers.
func provideStore(cfg Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", cfg.DBPath))
	return db, nil
}

func provideTokens(cfg Config, logger *zap.Logger) *Tokens {
	if cfg.SecretGenerated {
		logger.Warn("MSGRD_JWT_SECRET not set, using a random secret; sessions end on restart")
	}
	return NewTokens(cfg.JWTSecret, cfg.TokenTTL)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil {
				logger.Warn("error stopping http server", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("server stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
