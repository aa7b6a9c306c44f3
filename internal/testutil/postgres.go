// Package testutil starts throwaway PostgreSQL containers for storage tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/storage/postgres"
)

const (
	postgresImage  = "postgres:16-alpine"
	startupTimeout = 60 * time.Second
)

// Postgres is a running container plus the settings that reach it.
type Postgres struct {
	Config config.DatabaseConfig
}

// StartPostgres runs a PostgreSQL container for the lifetime of t.
//
// Precondition: Docker must be available.
// Postcondition: The container accepts connections with Config, or t has failed.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "yomi",
				"POSTGRES_PASSWORD": "yomi",
				"POSTGRES_DB":       "yomi_test",
			},
			// The entrypoint restarts the server once after init.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v [%s]", postgresImage, err, time.Since(start))
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	t.Logf("postgres container up [%s]", time.Since(start))

	return &Postgres{Config: config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "yomi",
		Password:        "yomi",
		Name:            "yomi_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}}
}

// Migrate applies every up migration.
//
// Postcondition: The schema is at the latest version, or t has failed.
func (p *Postgres) Migrate(t *testing.T) {
	t.Helper()
	m, err := migrate.New("file://"+MigrationsDir(), p.Config.DSN())
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
}

// Open connects a Store to the container and closes it with t.
func (p *Postgres) Open(t *testing.T) *postgres.Store {
	t.Helper()
	s, err := postgres.Open(context.Background(), p.Config, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// NewStore starts a container, migrates it and returns a connected Store.
func NewStore(t *testing.T) *postgres.Store {
	t.Helper()
	p := StartPostgres(t)
	p.Migrate(t)
	return p.Open(t)
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
