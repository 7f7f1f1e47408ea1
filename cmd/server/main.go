// Command server runs the personal finance tracker backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/papaya09/Personal-Finance-Tracker/internal/auth"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clientdata"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/cmc"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/coingecko"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/exchangerate"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/feargreed"
	"github.com/papaya09/Personal-Finance-Tracker/internal/clients/gold"
	"github.com/papaya09/Personal-Finance-Tracker/internal/config"
	"github.com/papaya09/Personal-Finance-Tracker/internal/database"
	"github.com/papaya09/Personal-Finance-Tracker/internal/modules/accounts"
	accountshandlers "github.com/papaya09/Personal-Finance-Tracker/internal/modules/accounts/handlers"
	"github.com/papaya09/Personal-Finance-Tracker/internal/modules/market"
	markethandlers "github.com/papaya09/Personal-Finance-Tracker/internal/modules/market/handlers"
	"github.com/papaya09/Personal-Finance-Tracker/internal/reliability"
	"github.com/papaya09/Personal-Finance-Tracker/internal/scheduler"
	"github.com/papaya09/Personal-Finance-Tracker/internal/server"
	"github.com/papaya09/Personal-Finance-Tracker/internal/solprice"
	"github.com/papaya09/Personal-Finance-Tracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger isn't configured yet, write directly to stderr
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Str("data_dir", cfg.DataDir).
		Msg("Starting personal finance tracker")

	// Databases: durable user data and ephemeral upstream-API cache
	folioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "folio.db"),
		Profile: database.ProfileStandard,
		Name:    "folio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open folio database")
	}
	defer folioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := auth.InitSessionSchema(folioDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sessions schema")
	}
	if err := accounts.InitSchema(folioDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize accounts schema")
	}
	if err := clientdata.InitSchema(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize client data schema")
	}

	// Upstream API clients
	cmcClient := cmc.NewClient(cfg.CMCAPIKey, log)
	fngClient := feargreed.NewClient(log)
	goldClient := gold.NewClient(cfg.GoldAPIEndpoint, cfg.GoldAPIKey, log)
	coingeckoClient := coingecko.NewClient(log)
	exchangeClient := exchangerate.NewClient(log)

	clientDataRepo := clientdata.NewRepository(cacheDB.Conn())

	// SOL price is polled in the background; requests never wait on it
	solPoller := solprice.NewPoller(coingeckoClient, log)

	marketService := market.NewService(market.Deps{
		Listings:  cmcClient,
		FearGreed: fngClient,
		Gold:      goldClient,
		SOL:       solPoller,
		Exchange:  exchangeClient,
		Repo:      clientDataRepo,
		Log:       log,
	})

	// Auth
	sessionStore := auth.NewSessionStore(folioDB.Conn(), cfg.SessionSecret, log)
	verifier := auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, log)
	authService := auth.NewService(sessionStore, verifier, cfg.DevMode, log)

	accountsRepo := accounts.NewRepository(folioDB.Conn())

	// Background jobs
	sched := scheduler.New(log)

	registerJob := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
		}
	}

	registerJob("@every 1m", solPoller)
	registerJob("@daily", clientdata.NewCleanupJob(clientDataRepo, log))
	registerJob("@daily", auth.NewSweepJob(sessionStore, log))
	registerJob("@every 6h", reliability.NewWALCheckpointJob([]*database.DB{folioDB, cacheDB}, log))

	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.Backup.AccountID,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 client")
		}

		backupService := reliability.NewBackupService(
			r2Client,
			[]*database.DB{folioDB, cacheDB},
			cfg.DataDir,
			cfg.Backup.KeepCount,
			log,
		)
		registerJob("0 0 3 * * *", reliability.NewBackupJob(backupService, log))
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("R2 backups enabled")
	} else {
		log.Info().Msg("R2 backups disabled (credentials not configured)")
	}

	// Warm the SOL price before serving requests
	if err := sched.RunNow(solPoller); err != nil {
		log.Warn().Err(err).Msg("Initial SOL price fetch failed, will retry on schedule")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:      log,
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
		DataDir:  cfg.DataDir,
		FolioDB:  folioDB,
		CacheDB:  cacheDB,
		Auth:     authService,
		Accounts: accountshandlers.NewHandler(accountsRepo, log),
		Market:   markethandlers.NewHandler(marketService, log),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server stopped unexpectedly")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
