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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swingvote/api/internal/app"
	"swingvote/api/internal/archive"
	"swingvote/api/internal/config"
	"swingvote/api/internal/congress"
	"swingvote/api/internal/email"
	"swingvote/api/internal/llm"
	"swingvote/api/internal/logging"
	"swingvote/api/internal/search"
	"swingvote/api/internal/session"
	"swingvote/api/internal/store"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "swingvote-api",
	Short: "SwingVote legislative tracking API",
	Long: `SwingVote serves bills, classifies senators by party loyalty, tallies a
whip count per bill and drafts outreach email.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		var err error
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply migrations, seed topics, start a background sync and serve HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync senators and bills once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, syncCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime holds the wired service and everything that must be closed with it.
type runtime struct {
	service *app.Service
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func openRuntime(ctx context.Context) (*runtime, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &runtime{closers: []func(){func() { _ = db.Close() }}}

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("applied migrations", zap.Strings("versions", applied))
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Dependencies{
		Congress: congress.NewClient(congress.Config{
			APIKey:   cfg.ProPublicaAPIKey,
			BaseURL:  cfg.ProPublicaBaseURL,
			Congress: cfg.Congress,
		}),
		Logger: logger,
	}
	if cfg.ProPublicaAPIKey == "" {
		logger.Warn("PROPUBLICA_API_KEY not set, sync will use seed data")
	}

	generator, err := llm.New(ctx, llm.Options{
		OpenAIKey:     cfg.AIAPIKey,
		OpenAIBaseURL: cfg.AIBaseURL,
		OpenAIModel:   cfg.AIModel,
		GeminiKey:     cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
	})
	if err != nil {
		logger.Warn("text generation backend unavailable, drafts will use the template", zap.Error(err))
		generator = nil
	}
	if generator != nil {
		logger.Info("text generation enabled", zap.String("backend", generator.Name()))
	}
	deps.Drafter = email.NewService(generator, logger.Named("email"))

	var meiliClient *search.Meili
	if cfg.MeiliURL != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		rt.closers = append(rt.closers, meiliClient.Close)
	}
	deps.Search = search.NewService(meiliClient, search.NewPostgres(dataStore), logger.Named("search"))

	if cfg.RedisURL != "" {
		cache, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, preferences will not be cached", zap.Error(err))
		} else {
			logger.Info("caching preferences in redis")
			deps.Cache = cache
			rt.closers = append(rt.closers, func() { _ = cache.Close() })
		}
	}

	archiveCfg := archive.Config{
		Endpoint:  cfg.ArchiveEndpoint,
		AccessKey: cfg.ArchiveAccessKey,
		SecretKey: cfg.ArchiveSecretKey,
		Bucket:    cfg.ArchiveBucket,
		UseSSL:    cfg.ArchiveUseSSL,
	}
	if archiveCfg.IsConfigured() {
		archiveStore, err := archive.New(ctx, archiveCfg)
		if err != nil {
			logger.Warn("payload archive unavailable", zap.Error(err))
		} else {
			deps.Archive = archiveStore
		}
	}

	rt.service = app.New(dataStore, deps)
	return rt, nil
}

func runServe(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap error (will retry on next restart)", zap.Error(err))
	}

	syncCtx, stopSync := context.WithCancel(ctx)
	syncDone := rt.service.StartSync(syncCtx)
	// Runs before rt.Close so the sync never sees a closed database.
	defer func() {
		stopSync()
		<-syncDone
	}()

	httpServer := app.NewHTTPServer(rt.service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("SwingVote API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

func runSync(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.service.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	report, err := rt.service.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	fmt.Printf("synced %d members (%s) and %d bills (%s)\n",
		report.Members, report.MembersSource, report.Bills, report.BillsSource)
	return nil
}

func runMigrate(ctx context.Context) error {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) == 0 {
		fmt.Println("database is up to date")
		return nil
	}
	for _, version := range applied {
		fmt.Println("applied", version)
	}
	return nil
}
