// Package identity implements the principal/group store backing the
// authentication exchange (§4.5): who a principal is, their password
// hash, and which groups they belong to. A share's ACL (§4.4) grants
// rights to a principal or a group by name; this package is what
// resolves those names to real membership.
package identity

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sharewire/sharewire/pkg/identity/migrations"
)

// Backend selects which SQL engine the store connects to.
type Backend string

const (
	// BackendSQLite is the default, single-node backend.
	BackendSQLite Backend = "sqlite"
	// BackendPostgres is the HA-capable backend for multi-node auth
	// servers sharing one identity store.
	BackendPostgres Backend = "postgres"
)

// Config selects and configures the identity store's backend.
type Config struct {
	Backend Backend `mapstructure:"backend" yaml:"backend"`

	// SQLitePath is the database file path, used when Backend is
	// BackendSQLite.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`

	// PostgresDSN is a libpq-style connection string, used when
	// Backend is BackendPostgres.
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn,omitempty"`
}

// ApplyDefaults fills in a zero-value Config with the single-node
// SQLite default.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		c.SQLitePath = "sharewire-identity.db"
	}
}

// Store is the identity store handle: principals, groups, and their
// memberships, backed by one gorm.DB connection.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured backend and ensures the schema is
// current, returning a ready-to-use Store.
//
// The two backends bring up their schema differently, matching the
// split the teacher repository itself draws between its general CRUD
// store (gorm.AutoMigrate, single node) and its HA metadata store
// (golang-migrate, advisory-locked, safe for concurrent instances):
// SQLite runs AutoMigrate since there is exactly one process touching
// the file; Postgres runs golang-migrate's embedded SQL migrations
// since multiple auth-server instances may start against the same
// database concurrently.
func Open(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()

	switch cfg.Backend {
	case BackendSQLite:
		return openSQLite(cfg)
	case BackendPostgres:
		return openPostgres(cfg)
	default:
		return nil, fmt.Errorf("identity: unsupported backend %q", cfg.Backend)
	}
}

func openSQLite(cfg Config) (*Store, error) {
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("identity: create database directory: %w", err)
		}
	}

	dsn := cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("identity: open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&Principal{}, &Group{}); err != nil {
		return nil, fmt.Errorf("identity: automigrate: %w", err)
	}
	return &Store{db: db}, nil
}

func openPostgres(cfg Config) (*Store, error) {
	if err := runPostgresMigrations(cfg.PostgresDSN); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("identity: open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func runPostgresMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("identity: open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{
		MigrationsTable: "identity_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("identity: postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("identity: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("identity: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("identity: migrate up: %w", err)
	}
	return nil
}

// DB returns the underlying GORM connection, for the admin CLI's
// share/user listing commands that need raw queries.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value violates unique constraint")
}
