// Package main exports a daily or weekly sales report as Markdown, CSV and/or XLSX.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salesbot/internal/analytics"
	"salesbot/internal/config"
	"salesbot/internal/reporting"
	"salesbot/internal/storage"
	"salesbot/internal/storage/memory"
	mysqlstore "salesbot/internal/storage/mysql"
	pgstore "salesbot/internal/storage/postgres"
)

// fixtureDays is enough history for a snapshot and forecast.
const fixtureDays = 8

func main() {
	config.LoadDotEnv()

	// Parse flags
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	kindFlag := flag.String("kind", "daily", "Report window: daily or weekly")
	formats := flag.String("format", "md,csv,xlsx", "Comma-separated output formats: md, csv, xlsx")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	mysqlDSN := flag.String("mysql-dsn", os.Getenv("MYSQL_DSN"), "MySQL connection string")
	timezone := flag.String("timezone", envOr("TIMEZONE", config.DefaultTimezone), "IANA time zone for calendar days")
	at := flag.String("at", "", "Generation time (RFC3339); default now")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory demo data instead of a database")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)
	ctx := context.Background()

	kind, err := reporting.ParseKind(*kindFlag)
	if err != nil {
		logger.Fatal(err)
	}
	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		logger.Fatalf("Invalid timezone %q: %v", *timezone, err)
	}
	now := time.Now()
	if *at != "" {
		if now, err = time.Parse(time.RFC3339, *at); err != nil {
			logger.Fatalf("Invalid --at: %v", err)
		}
	}
	outputs, err := parseFormats(*formats)
	if err != nil {
		logger.Fatal(err)
	}

	// Validate flags
	if !*useFixtures && *postgresDSN == "" && *mysqlDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn or --mysql-dsn is required when not using fixtures")
		fmt.Fprintln(os.Stderr, "Use --use-fixtures to run with demo data instead")
		os.Exit(1)
	}

	var (
		saleStore     storage.SaleStore
		snapshotStore storage.SnapshotStore
		cleanup       = func() {}
	)
	switch {
	case *useFixtures:
		saleStore, snapshotStore, err = createFixtureStores(ctx, now.In(loc), loc)
	case *mysqlDSN != "":
		saleStore, snapshotStore, cleanup, err = createMySQLStores(*mysqlDSN, loc)
	default:
		saleStore, snapshotStore, cleanup, err = createPostgresStores(ctx, *postgresDSN, *timezone)
	}
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	report, err := reporting.NewGenerator(saleStore, snapshotStore).WithLocation(loc).Generate(ctx, kind, now)
	if err != nil {
		logger.Fatalf("Failed to generate report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}

	base := fmt.Sprintf("REPORT_%s_%s", strings.ToUpper(string(kind)), report.WindowEnd.In(loc).Format("2006-01-02"))
	var written []string
	for _, format := range outputs {
		path := filepath.Join(*outputDir, base+"."+format)
		if err := writeReport(path, format, report); err != nil {
			logger.Fatalf("Failed to write %s: %v", path, err)
		}
		written = append(written, path)
	}

	fmt.Printf("%s generated successfully:\n", report.Title())
	for _, path := range written {
		fmt.Printf("  - %s\n", path)
	}
}

// writeReport renders r into path in the given format.
func writeReport(path, format string, r *reporting.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "md":
		_, err = f.WriteString(reporting.RenderMarkdown(r))
	case "csv":
		err = reporting.RenderCSV(f, r)
	case "xlsx":
		err = reporting.WriteXLSX(f, r)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func parseFormats(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "md", "csv", "xlsx":
			out = append(out, part)
		default:
			return nil, fmt.Errorf("unknown format %q", part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no output format selected")
	}
	return out, nil
}

// createFixtureStores creates in-memory stores with demo sales and a computed snapshot.
func createFixtureStores(ctx context.Context, now time.Time, loc *time.Location) (storage.SaleStore, storage.SnapshotStore, error) {
	sales := memory.NewSaleStoreInLocation(loc)
	snapshots := memory.NewSnapshotStore()

	if _, err := reporting.LoadFixtures(ctx, sales, now, fixtureDays); err != nil {
		return nil, nil, err
	}

	agg := analytics.NewAggregator(analytics.AggregatorOptions{
		SaleStore:     sales,
		SnapshotStore: snapshots,
		Clock:         func() time.Time { return now },
		Logger:        log.New(os.Stderr, "[analytics] ", log.LstdFlags),
	})
	if _, err := agg.Run(ctx); err != nil {
		return nil, nil, fmt.Errorf("compute fixture snapshot: %w", err)
	}

	return sales, snapshots, nil
}

// createPostgresStores connects to PostgreSQL and creates stores.
func createPostgresStores(ctx context.Context, dsn, timezone string) (storage.SaleStore, storage.SnapshotStore, func(), error) {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pgstore.NewSaleStore(pool).WithTimezone(timezone), pgstore.NewSnapshotStore(pool), pool.Close, nil
}

// createMySQLStores connects to MySQL and creates stores.
func createMySQLStores(dsn string, loc *time.Location) (storage.SaleStore, storage.SnapshotStore, func(), error) {
	db, err := mysqlstore.Open(dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to mysql: %w", err)
	}
	cleanup := func() { _ = mysqlstore.Close(db) }
	return mysqlstore.NewSaleStore(db).WithLocation(loc), mysqlstore.NewSnapshotStore(db), cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
