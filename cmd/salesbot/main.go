// Package main runs the sales bot: it polls the transactions feed for every
// configured group, stores new sales, alerts on large ones, recomputes the
// daily snapshot and serves the dashboard, query API and live feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesbot/internal/analytics"
	"salesbot/internal/config"
	"salesbot/internal/feed"
	"salesbot/internal/ingestion"
	"salesbot/internal/notify"
	"salesbot/internal/query"
	"salesbot/internal/reporting"
	"salesbot/internal/scheduler"
	"salesbot/internal/storage"
	chstore "salesbot/internal/storage/clickhouse"
	"salesbot/internal/storage/memory"
	"salesbot/internal/storage/migrations"
	mysqlstore "salesbot/internal/storage/mysql"
	pgstore "salesbot/internal/storage/postgres"
	"salesbot/internal/web"
)

const logFlags = log.LstdFlags | log.Lshortfile

// allStores holds the record store and optional mirrors.
type allStores struct {
	sales           storage.SaleStore
	snapshots       storage.SnapshotStore
	anomalies       storage.AnomalyStore
	snapshotMirrors []storage.SnapshotStore
	anomalyMirrors  []storage.AnomalyStore
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("[salesbot] %v", err)
	}

	logger := log.New(os.Stdout, "[salesbot] ", logFlags)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	logger.Printf("Polling groups %v every %v (backend=%s, timezone=%s)",
		cfg.Groups, cfg.PollInterval, cfg.Backend(), cfg.Location)

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	notifier := notify.Multi{
		notify.NewLogNotifier(log.New(os.Stdout, "[notify] ", logFlags)),
		notify.NewWebhookNotifier(notify.WebhookOptions{
			URL:         cfg.WebhookURL,
			RecipientID: cfg.RecipientID,
		}),
	}

	hub := web.NewHub(nil, log.New(os.Stdout, "[web] ", logFlags))

	poller := ingestion.NewPoller(ingestion.PollerOptions{
		Source: feed.NewClient(feed.Options{
			BaseURL: cfg.FeedBaseURL,
			Token:   cfg.FeedToken,
		}),
		SaleStore: stores.sales,
		Notifier:  notifier,
		Publisher: hub,
		Threshold: cfg.AlertThreshold,
		Limit:     cfg.PollLimit,
		Logger:    log.New(os.Stdout, "[ingestion] ", logFlags),
	})

	aggOpts := analytics.AggregatorOptions{
		SaleStore:     stores.sales,
		SnapshotStore: stores.snapshots,
		Mirrors:       stores.snapshotMirrors,
		Notifier:      notifier,
		Logger:        log.New(os.Stdout, "[analytics] ", logFlags),
	}
	var anomalies storage.AnomalyStore
	if cfg.EnableAnomaly {
		anomalies = stores.anomalies
		aggOpts.AnomalyStore = stores.anomalies
		aggOpts.AnomalyMirrors = stores.anomalyMirrors
	}
	aggregator := analytics.NewAggregator(aggOpts)

	reportKind, _ := reporting.ParseKind(cfg.ReportKind)
	sched := scheduler.New(scheduler.Options{
		Groups:            cfg.Groups,
		Poller:            poller,
		Aggregator:        aggregator,
		Reports:           reporting.NewGenerator(stores.sales, stores.snapshots).WithLocation(cfg.Location),
		ReportKind:        reportKind,
		Notifier:          notifier,
		PollInterval:      cfg.PollInterval,
		AggregateInterval: cfg.AggregateInterval,
		ReportInterval:    cfg.ReportInterval,
		Logger:            log.New(os.Stdout, "[scheduler] ", logFlags),
	})

	svc := query.NewService(query.Options{
		SaleStore:     stores.sales,
		SnapshotStore: stores.snapshots,
		AnomalyStore:  anomalies,
		Location:      cfg.Location,
	})

	webLogger := log.New(os.Stdout, "[web] ", logFlags)
	server := web.NewServer(web.Options{
		Queries:   svc,
		Commands:  query.NewCommands(svc, webLogger),
		Status:    sched,
		Hub:       hub,
		Logger:    webLogger,
		LogWriter: os.Stdout,
	})

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	httpDone := make(chan struct{})
	go func() {
		defer close(httpDone)
		if err := server.Run(ctx, cfg.HTTPAddr); err != nil {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	err = sched.Run(ctx)
	sched.Wait()
	<-httpDone
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Scheduler error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores opens the configured record store and the optional ClickHouse mirror.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*allStores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores := &allStores{}

	switch cfg.Backend() {
	case "memory":
		logger.Println("Using in-memory storage")
		stores.sales = memory.NewSaleStoreInLocation(cfg.Location)
		stores.snapshots = memory.NewSnapshotStore()
		stores.anomalies = memory.NewAnomalyStore()

	case "mysql":
		logger.Println("Connecting to MySQL...")
		db, err := mysqlstore.Open(cfg.MySQLDSN)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := mysqlstore.Close(db); err != nil {
				logger.Printf("Close MySQL: %v", err)
			}
		})
		if err := mysqlstore.AutoMigrate(ctx, db); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		stores.sales = mysqlstore.NewSaleStore(db).WithLocation(cfg.Location)
		stores.snapshots = mysqlstore.NewSnapshotStore(db)
		stores.anomalies = mysqlstore.NewAnomalyStore(db)

	default:
		logger.Println("Connecting to PostgreSQL...")
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.sales = pgstore.NewSaleStore(pool).WithTimezone(cfg.Timezone)
		stores.snapshots = pgstore.NewSnapshotStore(pool)
		stores.anomalies = pgstore.NewAnomalyStore(pool)
	}

	if cfg.ClickhouseDSN != "" {
		logger.Println("Connecting to ClickHouse mirror...")
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				logger.Printf("Close ClickHouse: %v", err)
			}
		})
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.snapshotMirrors = append(stores.snapshotMirrors, chstore.NewSnapshotStore(conn))
		stores.anomalyMirrors = append(stores.anomalyMirrors, chstore.NewAnomalyStore(conn))
	}

	return stores, cleanup, nil
}
