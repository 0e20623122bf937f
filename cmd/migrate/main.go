// Package main applies the embedded schema to the configured databases.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"salesbot/internal/config"
	chstore "salesbot/internal/storage/clickhouse"
	"salesbot/internal/storage/migrations"
	mysqlstore "salesbot/internal/storage/mysql"
	pgstore "salesbot/internal/storage/postgres"
)

func main() {
	config.LoadDotEnv()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	mysqlDSN := flag.String("mysql-dsn", os.Getenv("MYSQL_DSN"), "MySQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall migration timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.Lshortfile)

	if *postgresDSN == "" && *mysqlDSN == "" && *clickhouseDSN == "" {
		logger.Fatal("At least one of --postgres-dsn, --mysql-dsn, --clickhouse-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *postgresDSN != "" {
		if err := migratePostgres(ctx, *postgresDSN); err != nil {
			logger.Fatalf("PostgreSQL: %v", err)
		}
		logger.Println("PostgreSQL migrations applied")
	}

	if *mysqlDSN != "" {
		if err := migrateMySQL(ctx, *mysqlDSN); err != nil {
			logger.Fatalf("MySQL: %v", err)
		}
		logger.Println("MySQL schema migrated")
	}

	if *clickhouseDSN != "" {
		db, err := migrateClickhouse(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse: %v", err)
		}
		logger.Printf("ClickHouse migrations applied to database %s", db)
	}
}

func migratePostgres(ctx context.Context, dsn string) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	return migrations.RunPostgresMigrations(ctx, pool)
}

func migrateMySQL(ctx context.Context, dsn string) error {
	db, err := mysqlstore.Open(dsn)
	if err != nil {
		return err
	}
	defer mysqlstore.Close(db)

	return mysqlstore.AutoMigrate(ctx, db)
}

// migrateClickhouse creates the database named in dsn, then applies the schema to it.
func migrateClickhouse(ctx context.Context, dsn string) (string, error) {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return "", err
	}
	dbName, err := migrations.CreateClickhouseDatabase(ctx, admin, dsn)
	admin.Close()
	if err != nil {
		return "", err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return "", fmt.Errorf("apply: %w", err)
	}
	return dbName, nil
}
