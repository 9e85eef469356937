package client

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/config"
	"github.com/matheus3301/msgr/internal/lock"
	"github.com/matheus3301/msgr/internal/logging"
	"github.com/matheus3301/msgr/internal/profile"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/session"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile   string
	Binary    string // names the log file
	ServerURL string // optional override of config server_url
	Exclusive bool   // hold the profile lock while running
	LogStderr bool
	Debug     bool
}

// Module returns the fx module for a client front end.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideSessions,
			provideRemote,
			provideClient,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.Load(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.Profile, p.Binary), p.Profile, logging.Options{Stderr: p.LogStderr, Debug: p.Debug})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if !p.Exclusive {
		return nil, nil
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.LockPath(p.Profile), p.Binary)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideSessions(p Params) *session.Store {
	return session.NewStore(profile.SessionPath(p.Profile))
}

func provideRemote(p Params, cfg *config.Config, sessions *session.Store, logger *zap.Logger) (remote.Service, error) {
	url := cfg.ServerURL
	if p.ServerURL != "" {
		url = p.ServerURL
	}
	return remote.NewHTTPClient(url, cfg.RequestTimeout.Duration, sessions, logger.Named("remote"))
}

func provideClient(svc remote.Service, sessions *session.Store, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *Client {
	return New(svc, sessions, cfg, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, c *Client, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			restored, err := c.Restore()
			if err != nil {
				logger.Warn("could not restore session", zap.Error(err))
			} else if !restored {
				logger.Info("no saved session, auth required")
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			c.Close()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
