package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v3"

	"gambweb/internal/config"
	"gambweb/internal/database"
)

func main() {
	cmd := &cli.Command{
		Name:  "migrate",
		Usage: "manage the gambweb schema (connection from BLUEPRINT_DB_* and MIGRATIONS_PATH)",
		Commands: []*cli.Command{
			{Name: "up", Usage: "apply pending migrations", Action: withDB(up)},
			{Name: "down", Usage: "roll back the latest migration", Action: withDB(down)},
			{Name: "version", Usage: "print the applied version", Action: withDB(version)},
			{
				Name:      "create",
				Usage:     "write an empty up/down pair",
				ArgsUsage: "<name>",
				Action:    create,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("[MIGRATE] %v", err)
	}
}

type dbAction func(db *sql.DB, dir string) error

// withDB opens the configured database around a schema action.
func withDB(action dbAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := sql.Open("pgx", cfg.Postgres.URL())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		return action(db, cfg.Postgres.Migrations)
	}
}

func up(db *sql.DB, dir string) error {
	if err := database.RunMigrations(db, dir); err != nil {
		return err
	}
	log.Println("[MIGRATE] Schema is up to date")
	return nil
}

func down(db *sql.DB, dir string) error {
	if err := database.RollbackMigration(db, dir); err != nil {
		return err
	}
	log.Println("[MIGRATE] Rolled back one version")
	return nil
}

func version(db *sql.DB, dir string) error {
	v, dirty, err := database.GetMigrationVersion(db, dir)
	if err != nil {
		return err
	}
	if dirty {
		log.Printf("[MIGRATE] Version %d is dirty, fix it by hand and force the version", v)
		return nil
	}
	log.Printf("[MIGRATE] Version %d", v)
	return nil
}

func create(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("create needs a migration name")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	files, err := createMigration(cfg.Postgres.Migrations, name, time.Now())
	if err != nil {
		return err
	}
	for _, f := range files {
		log.Printf("[MIGRATE] Created %s", f)
	}
	return nil
}

var migrationFile = regexp.MustCompile(`^(\d+)_.+\.(up|down)\.sql$`)

// nextVersion is one past the highest version found in dir.
func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read migrations: %w", err)
	}
	highest := 0
	for _, e := range entries {
		m := migrationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}

func createMigration(dir, name string, now time.Time) ([]string, error) {
	v, err := nextVersion(dir)
	if err != nil {
		return nil, err
	}

	upFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.up.sql", v, name))
	downFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.down.sql", v, name))

	upSQL := fmt.Sprintf("-- %s (%s)\n", name, now.Format(time.DateOnly))
	if err := os.WriteFile(upFile, []byte(upSQL), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", upFile, err)
	}
	downSQL := fmt.Sprintf("-- undo %s\n", name)
	if err := os.WriteFile(downFile, []byte(downSQL), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", downFile, err)
	}
	return []string{upFile, downFile}, nil
}
