package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/localix/preloadd/internal/telemetry"
)

// DatabaseType selects the SQL backend.
type DatabaseType string

const (
	// DatabaseTypeSQLite reads from a local SQLite file (replicas, tests).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres reads from the shop's PostgreSQL database.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// SQLConfig configures the SQL fetcher.
type SQLConfig struct {
	Type       DatabaseType
	SQLitePath string
	Postgres   PostgresConfig

	// Queries maps resource keys to SELECT statements. Statements may use
	// named parameters (@name) bound from the resource params.
	Queries map[string]string
}

// ApplyDefaults fills in missing connection settings.
func (c *SQLConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = DefaultMaxConcurrent
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate checks the connection settings.
func (c *SQLConfig) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return errors.New("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return errors.New("postgres database is required")
		}
		if c.Postgres.User == "" {
			return errors.New("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// SQL fetches resources by running one read-only query per resource.
type SQL struct {
	db      *gorm.DB
	queries map[string]string
}

// NewSQL opens the database and returns a SQL fetcher.
func NewSQL(cfg SQLConfig) (*SQL, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DatabaseTypeSQLite:
		if _, err := os.Stat(cfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("sqlite database: %w", err)
		}
		// busy_timeout: wait up to 5 seconds while a writer holds the lock
		dsn := filepath.Clean(cfg.SQLitePath) + "?_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	queries := make(map[string]string, len(cfg.Queries))
	for k, q := range cfg.Queries {
		queries[k] = q
	}

	return &SQL{db: db, queries: queries}, nil
}

// Fetch implements Fetcher.
func (s *SQL) Fetch(ctx context.Context, key string, params Params) (Records, error) {
	query, ok := s.queries[key]
	if !ok {
		return Records{}, fmt.Errorf("no SQL query for resource %q", key)
	}

	ctx, span := telemetry.StartSourceSpan(ctx, telemetry.SpanSourceSQL, key,
		telemetry.SourceType(string(TypeSQL)))
	defer span.End()

	var rows []map[string]any
	tx := s.db.WithContext(ctx)
	if len(params) > 0 {
		named := make(map[string]any, len(params))
		for k, v := range params {
			named[k] = v
		}
		tx = tx.Raw(query, named)
	} else {
		tx = tx.Raw(query)
	}

	if err := tx.Scan(&rows).Error; err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Records{}, ctxErr
		}
		telemetry.RecordError(ctx, err)
		return Records{}, &TransportError{Op: "query " + key, Err: err}
	}

	for _, row := range rows {
		for col, v := range row {
			if b, ok := v.([]byte); ok {
				row[col] = string(b)
			}
		}
	}

	records := FromRows(rows)
	telemetry.SetAttributes(ctx, telemetry.Items(records.Len()))
	return records, nil
}

// Ping checks database connectivity.
func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure SQL implements Fetcher.
var _ Fetcher = (*SQL)(nil)
