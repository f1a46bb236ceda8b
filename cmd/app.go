package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cicloteca-backend/internal/cache"
	"cicloteca-backend/internal/config"
	"cicloteca-backend/internal/database"
	"cicloteca-backend/internal/download"
	"cicloteca-backend/internal/library"
	"cicloteca-backend/internal/links"
	"cicloteca-backend/internal/logging"
	"cicloteca-backend/internal/metrics"
	"cicloteca-backend/internal/resolver"
	"cicloteca-backend/internal/storage"
)

// app holds the wired pipeline shared by the subcommands
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	db       *sql.DB
	policy   resolver.Policy
	backend  storage.Backend
	local    *storage.LocalBackend // set when the local backend is used
	relay    *links.Relay
	resolver *resolver.Service
	executor *download.Executor
}

// loadConfig reads .env files, the config file and the environment
func loadConfig(flags *globalFlags, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	dotenvLoaded := config.LoadDotEnv(flags.envFiles...)

	cfg, err := config.LoadDefault(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if !dotenvLoaded {
		logger.Debug("no .env file found, using system environment variables")
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	a.policy = policy

	if cfg.Database.URL != "" {
		db, err := database.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.db = db
	}

	if err := a.initStorage(); err != nil {
		a.Close()
		return nil, err
	}

	urlCache, err := a.newCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.resolver = resolver.NewService(a.backend, urlCache,
		resolver.WithBackendTimeout(cfg.Resolver.BackendTimeout),
		resolver.WithLogger(logging.WithOperation(logger, "resolve")),
		resolver.WithMetrics(a.metrics),
	)

	a.executor = download.NewExecutor(a.relay,
		download.WithTempDir(cfg.Download.TempDir),
		download.WithCleanupGrace(cfg.Download.CleanupGrace),
		download.WithTimeout(cfg.Download.Timeout),
		download.WithLogger(logger),
		download.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) initStorage() error {
	storageHosts := append([]string{}, a.cfg.Storage.PublicHosts...)

	switch a.cfg.Storage.Backend {
	case config.StorageFirebase:
		backend := storage.NewFirebaseBackend(a.cfg.Storage.Bucket, a.cfg.Storage.BaseURL)
		storageHosts = append(storageHosts, backend.PublicHost())
		a.backend = backend
	default:
		publicURL := a.cfg.Storage.PublicURL
		if publicURL == "" {
			publicURL = fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)
		}
		backend, err := storage.NewLocalBackend(a.cfg.Storage.LocalDir, publicURL, a.cfg.Storage.SigningSecret)
		if err != nil {
			return err
		}
		if a.cfg.Storage.SigningSecret == "" {
			a.logger.Warn("no signing secret configured, local download URLs will not survive a restart")
		}
		a.local = backend
		a.backend = backend
	}

	a.relay = links.NewRelay(a.cfg.Relay.Origin, links.NewAllowList(storageHosts...))
	return nil
}

// newCache puts the session tier in front of the persistent local tier
func (a *app) newCache(ctx context.Context) (*cache.Cache, error) {
	tiers := []cache.Tier{{Name: "session", Store: cache.NewMemoryStore()}}

	switch {
	case a.db != nil:
		store := cache.NewSQLStore(a.db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		tiers = append(tiers, cache.Tier{Name: "local", Store: store})
	case a.cfg.Cache.File != "":
		tiers = append(tiers, cache.Tier{Name: "local", Store: cache.NewFileStore(a.cfg.Cache.File)})
	}

	return cache.New(tiers,
		cache.WithTTL(a.cfg.Cache.TTL),
		cache.WithLogger(a.logger),
		cache.WithMetrics(a.metrics),
	), nil
}

// newLibrary opens the catalog store. With a database the YAML catalog is
// upserted into it; without one it is served from memory.
func (a *app) newLibrary(ctx context.Context) (*library.Service, error) {
	entries, err := library.LoadCatalogFile(a.cfg.Library.Catalog)
	if errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("library catalog not found, starting empty", slog.String(logging.KeyPath, a.cfg.Library.Catalog))
		err = nil
	}
	if err != nil {
		return nil, err
	}

	var store library.Store
	if a.db != nil {
		pg := library.NewPostgresStore(a.db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if err := pg.Upsert(ctx, entry); err != nil {
				return nil, err
			}
		}
		store = pg
	} else {
		store = library.NewMemoryStore(entries...)
	}

	a.logger.Info("library loaded", slog.Int("seeded", len(entries)))
	return library.NewService(store, a.resolver, a.relay, a.policy, logging.WithOperation(a.logger, "library")), nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
