// Command migrate manages the versioned postgres schema of the placement
// service.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/farmtrack/backend/internal/infrastructure/config"
	"github.com/farmtrack/backend/internal/infrastructure/logger"
	"github.com/farmtrack/backend/internal/infrastructure/migration"
	"github.com/farmtrack/backend/migrations"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("usage")

// offline commands work on migration files only; the rest need a database
type offlineCommand func(log *zap.Logger, dir string, source fs.FS, args []string) error

type onlineCommand func(log *zap.Logger, m *migration.Migrator, args []string) error

var offlineCommands = map[string]offlineCommand{
	"create": runCreate,
	"list":   runList,
}

var onlineCommands = map[string]onlineCommand{
	"up":      func(_ *zap.Logger, m *migration.Migrator, _ []string) error { return m.Up() },
	"down":    func(_ *zap.Logger, m *migration.Migrator, _ []string) error { return m.Down() },
	"steps":   runSteps,
	"goto":    runGoTo,
	"version": runVersion,
	"force":   runForce,
}

func main() {
	path := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err = run(log, *path, args[0], args[1:])
	_ = logger.Sync(log)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	case err != nil:
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger, path, name string, args []string) error {
	var source fs.FS = migrations.FS
	dir := defaultMigrationsDir
	if path != "" {
		source = os.DirFS(path)
		dir = path
	}

	if cmd, ok := offlineCommands[name]; ok {
		return cmd(log, dir, source, args)
	}
	cmd, ok := onlineCommands[name]
	if !ok {
		printUsage()
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	m, closeDB, err := openMigrator(log, path)
	if err != nil {
		return err
	}
	defer closeDB()
	return cmd(log, m, args)
}

// openMigrator connects with the server's configuration. The returned func
// closes both the migrator and its connection.
func openMigrator(log *zap.Logger, path string) (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver == config.DriverSQLite {
		return nil, nil, errors.New("versioned migrations target postgres; sqlite schemas are created by the server on start")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if path != "" {
		m, err = migration.New(db, path, log)
	} else {
		m, err = migration.NewEmbedded(db, migrations.FS, log)
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}, nil
}

func runCreate(log *zap.Logger, dir string, _ fs.FS, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(log *zap.Logger, _ string, source fs.FS, _ []string) error {
	names, err := migration.ListMigrations(source)
	if err != nil {
		return err
	}
	log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func runSteps(_ *zap.Logger, m *migration.Migrator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate steps <n>", errUsage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid step count %q", errUsage, args[0])
	}
	return m.Steps(n)
}

func runGoTo(_ *zap.Logger, m *migration.Migrator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate goto <version>", errUsage)
	}
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", errUsage, args[0])
	}
	return m.GoTo(uint(version))
}

func runVersion(log *zap.Logger, m *migration.Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runForce(_ *zap.Logger, m *migration.Migrator, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate force <version>", errUsage)
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", errUsage, args[0])
	}
	return m.Force(version)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Placement schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  steps <n>             Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Set the version without running migrations
  create <name> [desc]  Write a new migration file pair to disk
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the set embedded in the binary)
  -log-level string     debug, info, warn or error (default: info)

The database connection is read from FARM_DATABASE_* like the server's.
`)
}
