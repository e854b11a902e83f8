package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/localix/preloadd/pkg/fetch"
)

type testProduct struct {
	ID        uint `gorm:"primaryKey"`
	Nombre    string
	Categoria string
	Precio    float64
}

// seedSQLite creates a SQLite catalog with three products.
func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testProduct{}))
	require.NoError(t, db.Create([]testProduct{
		{Nombre: "Café", Categoria: "bebidas", Precio: 3.5},
		{Nombre: "Té", Categoria: "bebidas", Precio: 2.0},
		{Nombre: "Pan", Categoria: "panaderia", Precio: 1.2},
	}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func newTestSQL(t *testing.T) *SQL {
	t.Helper()
	s, err := NewSQL(SQLConfig{
		Type:       DatabaseTypeSQLite,
		SQLitePath: seedSQLite(t),
		Queries: map[string]string{
			"products":    "SELECT id, nombre, precio FROM test_products ORDER BY id",
			"by_category": "SELECT nombre FROM test_products WHERE categoria = @categoria ORDER BY id",
			"broken":      "SELECT * FROM missing_table",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLConfigValidate(t *testing.T) {
	cfg := SQLConfig{}
	cfg.ApplyDefaults()
	assert.Equal(t, DatabaseTypeSQLite, cfg.Type)
	assert.Error(t, cfg.Validate())

	pg := SQLConfig{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "db", Database: "shop", User: "ro"}}
	pg.ApplyDefaults()
	require.NoError(t, pg.Validate())
	assert.Equal(t, 5432, pg.Postgres.Port)
	assert.Equal(t, "disable", pg.Postgres.SSLMode)
	assert.Equal(t, "host=db port=5432 user=ro password= dbname=shop sslmode=disable", pg.Postgres.DSN())

	assert.Error(t, (&SQLConfig{Type: "mysql"}).Validate())
}

func TestNewSQLMissingFile(t *testing.T) {
	_, err := NewSQL(SQLConfig{SQLitePath: filepath.Join(t.TempDir(), "nope.db")})
	assert.Error(t, err)
}

func TestSQLFetch(t *testing.T) {
	s := newTestSQL(t)
	require.NoError(t, s.Ping(context.Background()))

	r, err := s.Fetch(context.Background(), "products", nil)
	require.NoError(t, err)
	require.Equal(t, 3, r.Count)
	assert.Equal(t, "Café", r.Items[0]["nombre"])
	assert.Equal(t, 3.5, r.Items[0]["precio"])
}

func TestSQLFetchNamedParams(t *testing.T) {
	s := newTestSQL(t)

	r, err := s.Fetch(context.Background(), "by_category", Params{"categoria": "bebidas"})
	require.NoError(t, err)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "Té", r.Items[1]["nombre"])
}

func TestSQLFetchErrors(t *testing.T) {
	s := newTestSQL(t)

	_, err := s.Fetch(context.Background(), "unknown", nil)
	assert.Error(t, err)

	_, err = s.Fetch(context.Background(), "broken", nil)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, fetch.KindTransport, fetch.Classify(err).Kind)
}

func TestSQLFetchCanceled(t *testing.T) {
	s := newTestSQL(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx, "products", nil)
	require.Error(t, err)
	assert.True(t, fetch.IsCanceled(err))
}
