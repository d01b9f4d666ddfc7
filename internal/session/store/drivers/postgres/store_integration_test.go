package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/internal/session/store/drivers/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration tests run against SESSION_TEST_DATABASE_URL when it is set,
// otherwise against a throwaway postgres container. They are skipped with
// -short.

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "session"
	postgresPassword = "session"
	postgresDB       = "session"
)

// startPostgres runs a postgres container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// The server restarts once after initdb, so wait for the second
		// ready line.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, mappedPort.Port(), postgresDB)
}

func mustOpen(t *testing.T) *postgres.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}

	dsn := os.Getenv("SESSION_TEST_DATABASE_URL")
	if dsn == "" {
		dsn = startPostgres(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestPostgresStore_CRUD(t *testing.T) {
	st := mustOpen(t)
	ctx := context.Background()

	key := "session.it." + time.Now().Format("150405.000000000")
	t.Cleanup(func() { _ = st.Remove(context.Background(), key) })

	_, err := st.Get(ctx, key)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Set(ctx, key, []byte("one")))
	require.NoError(t, st.Set(ctx, key, []byte("two")))

	got, err := st.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "two", string(got))

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	require.Contains(t, keys, key)

	require.NoError(t, st.Remove(ctx, key))
	_, err = st.Get(ctx, key)
	require.ErrorIs(t, err, store.ErrNotFound)
}
