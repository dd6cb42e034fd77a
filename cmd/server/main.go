// Package main is the entry point for the E*TRADE report service. The
// service authenticates with the E*TRADE REST API, keeps local snapshot
// and transaction-ledger databases warm on a schedule, and serves a JSON
// API with bucketed positions, concentration analysis, cash flow history
// and summary reports.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env supported)
//  2. Initialize structured logging
//  3. Load the analysis configuration (buckets, exposure mappings) and
//     build the classifier and the exposure graph - fail fast on a bad
//     mapping so a misconfigured graph can never under- or over-count
//  4. Open cache.db and the snapshot repository
//  5. Create the broker client and restore a cached OAuth session if one
//     is still usable
//  6. Wire services (portfolio, cash flows, reports)
//  7. Register sync jobs (and the S3 backup job when configured)
//  8. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"

	"github.com/andrew-rosca/etrade-report/internal/clients/etrade"
	"github.com/andrew-rosca/etrade-report/internal/clients/etrade/sdk"
	"github.com/andrew-rosca/etrade-report/internal/config"
	"github.com/andrew-rosca/etrade-report/internal/database"
	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/cash_flows"
	"github.com/andrew-rosca/etrade-report/internal/modules/concentration"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
	"github.com/andrew-rosca/etrade-report/internal/modules/reports"
	"github.com/andrew-rosca/etrade-report/internal/modules/snapshots"
	"github.com/andrew-rosca/etrade-report/internal/scheduler"
	"github.com/andrew-rosca/etrade-report/internal/server"
	"github.com/andrew-rosca/etrade-report/internal/services/backup"
	"github.com/andrew-rosca/etrade-report/pkg/logger"
)

func main() {
	// Load configuration first to get the log level.
	cfg, err := config.Load()
	if err != nil {
		// Use a fallback logger so the configuration error is still visible.
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty || cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Bool("sandbox", cfg.Sandbox).
		Msg("Starting etrade-report")

	// Analysis configuration: bucket definitions and exposure mappings.
	// A missing file falls back to defaults (everything Unassigned, no
	// mappings); a malformed file or a bad mapping aborts startup.
	analysis, err := config.LoadAnalysis(cfg.AnalysisConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", cfg.AnalysisConfigPath).Msg("No analysis configuration found, using defaults")
		analysis = config.DefaultAnalysis()
	} else if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AnalysisConfigPath).Msg("Failed to load analysis configuration")
	}

	rules := make([]buckets.Rule, len(analysis.Buckets))
	for i, b := range analysis.Buckets {
		rules[i] = buckets.Rule{Name: b.Name, Patterns: b.Patterns}
	}
	classifier := buckets.NewClassifier(rules)

	concentrationSvc, err := concentration.NewService(analysis.ExposureMappings, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid exposure mapping configuration")
	}
	log.Info().
		Int("buckets", len(rules)).
		Int("mappings", len(analysis.ExposureMappings)).
		Msg("Analysis configuration loaded")

	// cache.db holds only rebuildable data (latest snapshots), so it is
	// opened with the speed-over-durability pragma profile.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	snapshotRepo, err := snapshots.NewRepository(cacheDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot repository")
	}

	// Broker client. A cached OAuth session is restored when still usable;
	// otherwise data endpoints answer 503 until the authorization flow is
	// completed via the API.
	client := etrade.NewClient(sdk.Config{
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		Sandbox:        cfg.Sandbox,
		RequestDelay:   time.Duration(cfg.RequestDelayMs) * time.Millisecond,
	}, filepath.Join(cfg.DataDir, "tokens.json"), log)
	defer client.Close()

	restored, err := client.RestoreSession()
	if err != nil {
		log.Warn().Err(err).Msg("Could not restore broker session")
	}
	if restored {
		log.Info().Msg("Broker session restored from token cache")
	} else {
		log.Info().Msg("No usable broker session, authorize via POST /api/auth/start")
	}

	portfolioSvc := portfolio.NewService(client, classifier, snapshotRepo, *analysis.MinPositionValue, log)
	cashFlowsSvc := cash_flows.NewService(client, cfg.DataDir, cfg.BackfillDays, log)
	defer cashFlowsSvc.Close()
	reportsSvc := reports.NewService(portfolioSvc, cashFlowsSvc, classifier, concentrationSvc, log)

	// Background jobs keep snapshots and ledgers warm so the dashboard can
	// serve last-known data while the broker is unreachable.
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PortfolioSchedule, scheduler.NewPortfolioSyncJob(client, portfolioSvc, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register portfolio sync job")
	}
	if err := sched.AddJob(cfg.TransactionsSched, scheduler.NewTransactionSyncJob(client, portfolioSvc, cashFlowsSvc, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register transaction sync job")
	}

	// Optional nightly S3 backup, gated on a configured bucket name.
	if cfg.BackupS3Bucket != "" {
		s3Client, err := backup.NewS3Client(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client for backups")
		}
		backupSvc := backup.NewService(
			manager.NewUploader(s3Client),
			s3Client,
			cacheDB,
			cfg.DataDir,
			cfg.BackupS3Bucket,
			cfg.BackupS3Prefix,
			log,
		)
		if err := sched.AddJob(cfg.BackupSchedule, backup.NewJob(backupSvc)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
		log.Info().Str("bucket", cfg.BackupS3Bucket).Msg("S3 backup enabled")
	}

	srv := server.New(server.Config{
		Log:           log,
		Port:          cfg.Port,
		DevMode:       cfg.DevMode,
		DataDir:       cfg.DataDir,
		Broker:        client,
		Jobs:          sched,
		CacheDB:       cacheDB,
		Portfolio:     portfolioSvc,
		Classifier:    classifier,
		Concentration: concentrationSvc,
		CashFlows:     cashFlowsSvc,
		Reports:       reportsSvc,
		DefaultTopN:   *analysis.TopN,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sched.Start()

	// Wait for a shutdown signal, then stop the scheduler first so no new
	// syncs start while connections are being torn down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
