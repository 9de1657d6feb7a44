package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	"newsapi/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		driver  = flag.String("driver", "", "Local store driver: postgres or sqlite (default LOCAL_DRIVER)")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *driver != "" {
		cfg.Driver = *driver
	}

	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for 'create' command")
		}
		dir, err := cfg.migrationsDir()
		if err != nil {
			log.Fatal(err)
		}
		goose.SetSequential(true)
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	ctx := context.Background()
	db, closeDB, err := openDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB()

	switch *command {
	case "up":
		if err := migrations.Up(ctx, db, cfg.Driver); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := migrations.Down(ctx, db, cfg.Driver); err != nil {
			log.Fatalf("Failed to rollback migrations: %v", err)
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		statuses, err := migrations.ListStatus(ctx, db, cfg.Driver)
		if err != nil {
			log.Fatalf("Failed to check migration status: %v", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%5d  %-8s %s\n", s.Version, state, s.Path)
		}
	default:
		log.Fatalf("Unknown command: %s. Use: up, down, status, create", *command)
	}
}

func openDB(ctx context.Context, cfg migrateConfig) (*sql.DB, func(), error) {
	switch cfg.Driver {
	case migrations.DialectPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		db := stdlib.OpenDBFromPool(pool)
		return db, func() {
			_ = db.Close()
			pool.Close()
		}, nil
	case migrations.DialectSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}
