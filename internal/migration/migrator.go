package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect 是受支持的数据库方言。
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect 解析方言字符串，接受常见别名。
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database dialect: %s (supported: sqlite, postgres, mysql)", s)
	}
}

// Status 是单个迁移的应用状态。
type Status struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// Config 是迁移器配置。
type Config struct {
	// Dialect 选择内嵌 SQL 的方言目录与数据库驱动。
	Dialect Dialect
	// DSN 是数据库连接串，与对应驱动的 sql.Open 格式一致。SQLite 直接给文件路径。
	DSN string
	// TableName 是版本记录表名，默认 schema_migrations。
	TableName string
}

// Migrator 定义迁移操作。
type Migrator interface {
	// Up 应用所有未执行的迁移。
	Up(ctx context.Context) error
	// Down 回滚最近一次迁移。
	Down(ctx context.Context) error
	// Steps 正数应用、负数回滚 n 个迁移。
	Steps(ctx context.Context, n int) error
	// Version 返回当前版本与 dirty 标记，未迁移过时版本为 0。
	Version(ctx context.Context) (uint, bool, error)
	// Status 返回所有迁移的应用状态。
	Status(ctx context.Context) ([]Status, error)
	// Close 释放数据库连接。
	Close() error
}

// SQLMigrator 是基于 golang-migrate 的默认实现。
type SQLMigrator struct {
	cfg     Config
	db      *sql.DB
	migrate *migrate.Migrate
}

// NewMigrator 创建迁移器并建立数据库连接。
func NewMigrator(cfg Config) (*SQLMigrator, error) {
	if cfg.DSN == "" {
		return nil, errors.New("migration: database DSN is required")
	}
	if _, err := ParseDialect(string(cfg.Dialect)); err != nil {
		return nil, err
	}
	if cfg.TableName == "" {
		cfg.TableName = "schema_migrations"
	}

	m := &SQLMigrator{cfg: cfg}
	if err := m.init(); err != nil {
		m.Close()
		return nil, fmt.Errorf("migration: init failed: %w", err)
	}
	return m, nil
}

func (m *SQLMigrator) init() error {
	db, err := sql.Open(m.driverName(), m.cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	m.db = db

	driver, err := m.databaseDriver()
	if err != nil {
		return fmt.Errorf("create database driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, m.sourcePath())
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m.migrate, err = migrate.NewWithInstance("iofs", src, string(m.cfg.Dialect), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	return nil
}

func (m *SQLMigrator) driverName() string {
	switch m.cfg.Dialect {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

func (m *SQLMigrator) databaseDriver() (database.Driver, error) {
	switch m.cfg.Dialect {
	case DialectPostgres:
		return postgres.WithInstance(m.db, &postgres.Config{MigrationsTable: m.cfg.TableName})
	case DialectMySQL:
		return mysql.WithInstance(m.db, &mysql.Config{MigrationsTable: m.cfg.TableName})
	default:
		return sqlite.WithInstance(m.db, &sqlite.Config{MigrationsTable: m.cfg.TableName})
	}
}

func (m *SQLMigrator) sourcePath() string {
	return "migrations/" + string(m.cfg.Dialect)
}

// Up 应用所有未执行的迁移。没有待执行迁移时不报错。
func (m *SQLMigrator) Up(_ context.Context) error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down 回滚最近一次迁移。
func (m *SQLMigrator) Down(_ context.Context) error {
	if err := m.migrate.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Steps 正数应用、负数回滚 n 个迁移。
func (m *SQLMigrator) Steps(_ context.Context, n int) error {
	if err := m.migrate.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return nil
}

// Version 返回当前版本与 dirty 标记，未迁移过时版本为 0。
func (m *SQLMigrator) Version(_ context.Context) (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("migration version failed: %w", err)
	}
	return version, dirty, nil
}

// Status 返回所有内嵌迁移的应用状态。
func (m *SQLMigrator) Status(ctx context.Context) ([]Status, error) {
	current, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}

	files, err := m.available()
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(files))
	for _, f := range files {
		statuses = append(statuses, Status{
			Version: f.version,
			Name:    f.name,
			Applied: f.version <= current,
			Dirty:   dirty && f.version == current,
		})
	}
	return statuses, nil
}

// Close 释放 golang-migrate 实例与数据库连接。
// WithInstance 不接管传入的连接，父连接由这里关闭。
func (m *SQLMigrator) Close() error {
	var errs []error
	if m.migrate != nil {
		srcErr, dbErr := m.migrate.Close()
		if srcErr != nil {
			errs = append(errs, srcErr)
		}
		if dbErr != nil {
			errs = append(errs, dbErr)
		}
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("migration: close failed: %v", errs)
	}
	return nil
}

type migrationFile struct {
	version uint
	name    string
}

// available 扫描内嵌目录，按版本号升序返回迁移列表。
// 文件名形如 0001_create_runs.up.sql。
func (m *SQLMigrator) available() ([]migrationFile, error) {
	entries, err := fs.ReadDir(migrationsFS, m.sourcePath())
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		files = append(files, migrationFile{
			version: uint(version),
			name:    strings.TrimSuffix(parts[1], ".up.sql"),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}
