package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/BaSui01/metaexpert/config"
	"github.com/BaSui01/metaexpert/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "up":
		runMigrateStep(subargs, "Migration failed", (*migration.CLI).RunUp)
	case "down":
		runMigrateStep(subargs, "Migration rollback failed", (*migration.CLI).RunDown)
	case "status":
		runMigrateStep(subargs, "Failed to get status", (*migration.CLI).RunStatus)
	case "version":
		runMigrateStep(subargs, "Failed to get version", (*migration.CLI).RunVersion)
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  metaexpert migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration
  status    Show migration status
  version   Show current migration version
  help      Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-dsn <dsn>      Database connection string (default: from config)

Examples:
  metaexpert migrate up
  metaexpert migrate up --config /etc/metaexpert/config.yaml
  metaexpert migrate up --db-type sqlite --db-dsn ./metaexpert.db
  metaexpert migrate down
  metaexpert migrate status`)
}

// createMigrator creates a migrator from command line flags
func createMigrator(fs *flag.FlagSet, args []string) (*migration.SQLMigrator, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbDSN := fs.String("db-dsn", "", "Database connection string")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// If db-type and db-dsn are provided, use them directly
	if *dbType != "" && *dbDSN != "" {
		dialect, err := migration.ParseDialect(*dbType)
		if err != nil {
			return nil, err
		}
		return migration.NewMigrator(migration.Config{Dialect: dialect, DSN: *dbDSN})
	}

	// Otherwise, load from config
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	driver := cfg.Database.Driver
	if *dbType != "" {
		driver = *dbType
	}
	if driver == "" {
		return nil, fmt.Errorf("no database configured: set METAEXPERT_DATABASE_DRIVER or pass --db-type/--db-dsn")
	}
	dialect, err := migration.ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	return migration.NewMigrator(migration.Config{Dialect: dialect, DSN: cfg.Database.DSN()})
}

// runMigrateStep builds a migrator from flags and runs a single CLI action
func runMigrateStep(args []string, failMsg string, run func(*migration.CLI, context.Context) error) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrator, err := createMigrator(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	if err := run(cli, context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", failMsg, err)
		os.Exit(1)
	}
}
