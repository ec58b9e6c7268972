// Command migrate manages the back-office schema. Migrations are embedded in
// the binary; -path points it at a directory instead, which create requires.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/saas/backoffice/internal/infrastructure/config"
	"github.com/saas/backoffice/internal/infrastructure/logger"
	"github.com/saas/backoffice/internal/infrastructure/migration"
	"github.com/saas/backoffice/migrations"
	"go.uber.org/zap"
)

const usage = `Back-office database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Record a version as applied without running it
  drop -confirm         Drop every table, bookkeeping included
  create <name> [desc]  Create a new migration file pair (requires -path)
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: embedded migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

The database comes from config.toml and BACKOFFICE_DATABASE_* variables.`

var errUsage = errors.New("invalid arguments")

// env carries what a command may need. migrator is nil for offline commands.
type env struct {
	log      *zap.Logger
	dir      string // empty when reading the embedded migrations
	source   fs.FS
	args     []string
	migrator *migration.Migrator
}

type command struct {
	online bool
	run    func(e *env) error
}

var commands = map[string]command{
	"create": {run: createCmd},
	"list":   {run: listCmd},

	"up":   {online: true, run: func(e *env) error { return e.migrator.Up() }},
	"down": {online: true, run: func(e *env) error { return e.migrator.Down() }},
	"step": {online: true, run: func(e *env) error {
		n, err := intArg(e.args, "step count")
		if err != nil {
			return err
		}
		return e.migrator.Steps(n)
	}},
	"goto": {online: true, run: func(e *env) error {
		v, err := intArg(e.args, "version")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%w: version cannot be negative", errUsage)
		}
		return e.migrator.GoTo(uint(v))
	}},
	"force": {online: true, run: func(e *env) error {
		v, err := intArg(e.args, "version")
		if err != nil {
			return err
		}
		return e.migrator.Force(v)
	}},
	"version": {online: true, run: versionCmd},
	"drop": {online: true, run: func(e *env) error {
		if !slices.Contains(e.args, "-confirm") && !slices.Contains(e.args, "--confirm") {
			return fmt.Errorf("%w: drop needs -confirm", errUsage)
		}
		return e.migrator.Drop()
	}},
}

func main() {
	dir := flag.String("path", "", "Migrations directory (default: the migrations embedded in the binary)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	e := &env{log: log, source: migrations.FS, args: args[1:]}
	if *dir != "" {
		if e.dir, err = filepath.Abs(*dir); err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
		e.source = os.DirFS(e.dir)
	}

	err = execute(e, args[0], cmd)
	_ = log.Sync()
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		flag.Usage()
		os.Exit(2)
	case err != nil:
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func execute(e *env, name string, cmd command) error {
	e.log.Info("Migration CLI started", zap.String("command", name), zap.String("source", sourceName(e.dir)))
	if !cmd.online {
		return cmd.run(e)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}

	// the migrator owns db from here on
	if e.migrator, err = migration.NewFromFS(db, e.source, e.log); err != nil {
		_ = db.Close()
		return err
	}
	return errors.Join(cmd.run(e), e.migrator.Close())
}

func createCmd(e *env) error {
	if e.dir == "" {
		return fmt.Errorf("%w: create needs -path pointing at the migrations directory", errUsage)
	}
	if len(e.args) == 0 {
		return fmt.Errorf("%w: create needs a migration name", errUsage)
	}
	var description string
	if len(e.args) > 1 {
		description = e.args[1]
	}
	mf, err := migration.CreateMigration(e.dir, e.args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath))
	return nil
}

func listCmd(e *env) error {
	infos, err := migration.ListMigrations(e.source)
	if err != nil {
		return err
	}
	e.log.Info("Available migrations", zap.Int("count", len(infos)))
	for _, info := range infos {
		fmt.Println("  -", info)
	}
	return nil
}

func versionCmd(e *env) error {
	version, dirty, err := e.migrator.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		e.log.Info("No migrations applied")
		return nil
	}
	e.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func intArg(args []string, name string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s required", errUsage, name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errUsage, name, args[0])
	}
	return n, nil
}

func sourceName(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}
