package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v3"

	"gambweb/internal/cache"
	"gambweb/internal/config"
	"gambweb/internal/database"
	"gambweb/internal/server"
)

func main() {
	cmd := &cli.Command{
		Name:  "gambweb",
		Usage: "casino wagering server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address, overrides HTTP_ADDR",
				Sources: cli.EnvVars("GAMBWEB_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "apply pending migrations before serving",
				Value:   true,
				Sources: cli.EnvVars("RUN_MIGRATIONS"),
			},
			&cli.BoolFlag{
				Name:    "no-db",
				Usage:   "run without Postgres (no identity table or round history)",
				Sources: cli.EnvVars("NO_DB"),
			},
		},
		Action: serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("[SERVER] %v", err)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheService, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		log.Println("[CACHE] Running without Redis, sessions are kept in memory")
		cacheService = nil
	}

	var db database.Service
	if !cmd.Bool("no-db") {
		db = openDatabase(ctx, cfg.Postgres, cmd.Bool("migrate"))
	}

	srv, err := server.New(cfg, db, cacheService)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	srv.RegisterFiberRoutes()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] Listening on %s", cfg.HTTP.Addr)
		errCh <- srv.Listen(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			srv.Shutdown()
			return fmt.Errorf("listen: %w", err)
		}
	}

	return srv.Shutdown()
}

// openDatabase connects to Postgres and optionally migrates it. Failures
// leave the server running without identity or history.
func openDatabase(ctx context.Context, cfg config.Postgres, migrate bool) database.Service {
	if migrate && cfg.Migrations != "" {
		if err := runMigrations(cfg); err != nil {
			log.Printf("[DB] Migrations failed: %v", err)
			return nil
		}
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		log.Printf("[DB] Running without Postgres: %v", err)
		return nil
	}
	return db
}

func runMigrations(cfg config.Postgres) error {
	sqlDB, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return database.RunMigrations(sqlDB, cfg.Migrations)
}
