package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/samahstore/catalog/pkg/cache"
	"github.com/samahstore/catalog/pkg/catalog"
	"github.com/samahstore/catalog/pkg/config"
	"github.com/samahstore/catalog/pkg/httpapi"
	"github.com/samahstore/catalog/pkg/logging"
	"github.com/samahstore/catalog/pkg/store"
	"github.com/samahstore/catalog/pkg/store/migrations"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	load := func() (config.Config, zerolog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, zerolog.Nop(), err
		}
		if logLevel != "" {
			cfg.Log.Level = logging.LogLevel(logLevel)
		}
		return cfg, logging.Setup(cfg.Log), nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := load()
		if err != nil {
			return err
		}
		seed, _ := cmd.Flags().GetBool("seed")
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg, logger, seed)
	}

	root := &cobra.Command{
		Use:          "catalog-server",
		Short:        "Storefront catalog read service",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.Flags().Bool("seed", false, "load demo data into the memory store")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  serve,
	}
	serveCmd.Flags().Bool("seed", false, "load demo data into the memory store")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL schema",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(*cobra.Command, []string) error {
				cfg, logger, err := load()
				if err != nil {
					return err
				}
				return migrate(cfg, logger, (*migrations.Migrator).Up)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(*cobra.Command, []string) error {
				cfg, logger, err := load()
				if err != nil {
					return err
				}
				return migrate(cfg, logger, (*migrations.Migrator).Down)
			},
		},
	)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, versionCmd)
	return root
}

func migrate(cfg config.Config, logger zerolog.Logger, step func(*migrations.Migrator) error) error {
	if cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("migrate: %s is not set", config.EnvDatabaseURL)
	}
	m, err := migrations.New(cfg.Store.DatabaseURL, logger.With().Str("component", "migrate").Logger())
	if err != nil {
		return err
	}
	defer m.Close()
	return step(m)
}

// app is the wired server.
type app struct {
	registry *cache.Registry
	service  *catalog.Service
	handler  *httpapi.Handler
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp connects the data sources and wires cache, service and HTTP handler.
// The process must not serve when the region table is invalid.
func buildApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, seed bool) (*app, error) {
	a := &app{}

	regions, err := cfg.Regions()
	if err != nil {
		return nil, err
	}
	a.registry, err = cache.NewRegistry(regions, cache.WithLogger(logger.With().Str("component", "cache").Logger()))
	if err != nil {
		return nil, fmt.Errorf("cache registry: %w", err)
	}
	a.closers = append(a.closers, a.registry.Close)

	repos, checks, err := a.openStores(ctx, cfg, logger, seed)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service, err = catalog.NewService(repos, a.registry, logger.With().Str("component", "catalog").Logger())
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(logger.With().Str("component", "httpapi").Logger()),
		httpapi.WithSlowThreshold(cfg.Server.SlowThreshold()),
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	}
	if cfg.Server.AdminToken != "" {
		opts = append(opts, httpapi.WithAuthorizer(httpapi.StaticToken(cfg.Server.AdminToken)))
	} else {
		logger.Warn().Msg("No admin token configured, admin endpoints are disabled")
	}
	for _, c := range checks {
		opts = append(opts, httpapi.WithReadyCheck(c.Name, c.Ping))
	}
	a.handler = httpapi.New(a.service, a.registry, opts...)

	return a, nil
}

func (a *app) openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger, seed bool) (catalog.Repositories, []httpapi.ReadyCheck, error) {
	storeLogger := logger.With().Str("component", "store").Logger()

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := store.OpenPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns)
		if err != nil {
			return catalog.Repositories{}, nil, err
		}
		a.closers = append(a.closers, pool.Close)
		pg := store.NewPostgres(pool, storeLogger)
		if err := store.WaitReady(ctx, "postgres", pg.Ping, store.DefaultRetryConfig()); err != nil {
			return catalog.Repositories{}, nil, err
		}

		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Store.RedisAddr,
			DB:   cfg.Store.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		hero := store.NewRedisHero(redisClient, storeLogger)
		if err := store.WaitReady(ctx, "redis", hero.Ping, store.DefaultRetryConfig()); err != nil {
			return catalog.Repositories{}, nil, err
		}

		logger.Info().Str("driver", cfg.Store.Driver).Str("redis", cfg.Store.RedisAddr).Msg("Stores connected")
		return catalog.Repositories{
				Categories: pg.Categories(),
				Products:   pg.Products(),
				Hero:       hero,
			}, []httpapi.ReadyCheck{
				{Name: "postgres", Ping: pg.Ping},
				{Name: "redis", Ping: hero.Ping},
			}, nil

	default:
		mem := store.NewMemory()
		if seed {
			if err := seedDemo(ctx, mem); err != nil {
				return catalog.Repositories{}, nil, fmt.Errorf("seed demo data: %w", err)
			}
			logger.Info().Msg("Demo data loaded")
		}
		logger.Info().Str("driver", config.DriverMemory).Msg("Using in-memory store")
		return mem.Repositories(), []httpapi.ReadyCheck{{Name: "memory", Ping: mem.Ping}}, nil
	}
}

func runServer(ctx context.Context, cfg config.Config, logger zerolog.Logger, seed bool) error {
	a, err := buildApp(ctx, cfg, logger, seed)
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("Starting catalog server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

// seedDemo fills an empty memory store with a few categories and products.
func seedDemo(ctx context.Context, mem *store.Memory) error {
	repos := mem.Repositories()
	names := map[string][]store.ProductInput{
		"Books": {
			{Name: "Dune", Description: "Desert planet epic", Price: 12.5, Active: true},
			{Name: "Emma", Description: "A comedy of manners", Price: 7.25, Active: true},
		},
		"Toys": {
			{Name: "Kite", Description: "Flies in light wind", Price: 25, Active: true},
		},
		"Garden Tools": {
			{Name: "Trowel", Description: "Stainless steel hand trowel", Price: 9.99, Active: true},
		},
	}
	for name, products := range names {
		c, err := repos.Categories.Create(ctx, catalog.CategoryInput{Name: name, Slug: catalog.Slugify(name), Active: true})
		if err != nil {
			return err
		}
		for _, p := range products {
			p.CategoryID = c.ID
			if _, err := mem.SeedProduct(p); err != nil {
				return err
			}
		}
	}
	_, err := repos.Hero.Save(ctx, catalog.HeroInput{
		Title:    "Spring collection",
		Subtitle: "New arrivals every week",
		CTAText:  "Browse",
		CTALink:  "/products",
		Active:   true,
	})
	return err
}
