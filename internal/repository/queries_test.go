//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	mindchat "github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/repository"
)

// startPostgres runs a disposable Postgres, applies migrations and returns a pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "mindchat",
				"POSTGRES_PASSWORD": "mindchat",
				"POSTGRES_DB":       "mindchat",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "should start postgres container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://mindchat:mindchat@%s:%s/mindchat?sslmode=disable", host, port.Port())

	migrations, err := fs.Sub(mindchat.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, repository.RunMigrations(dsn, migrations), "should apply migrations")

	pool, err := repository.NewPool(ctx, dsn, repository.PoolOptions{MaxConns: 4})
	require.NoError(t, err, "should connect to postgres")
	t.Cleanup(pool.Close)

	return pool
}

func TestQueries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := startPostgres(t)
	q := repository.New(pool)
	ctx := context.Background()

	t.Run("thread lifecycle", func(t *testing.T) {
		thread, err := q.CreateThread(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, thread.ID)

		got, err := q.GetThread(ctx, thread.ID)
		require.NoError(t, err)
		assert.Equal(t, thread.ID, got.ID)

		_, err = q.GetThread(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("messages are ordered and visible after insert", func(t *testing.T) {
		thread, err := q.CreateThread(ctx)
		require.NoError(t, err)

		image := "https://cdn.example.com/a.png"
		user, err := q.AddMessage(ctx, domain.NewMessage{ThreadID: thread.ID, Role: domain.RoleUser, ImageURL: &image})
		require.NoError(t, err)

		history, err := q.ListMessages(ctx, thread.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, user.ID, history[0].ID)
		require.NotNil(t, history[0].ImageURL)
		assert.Equal(t, image, *history[0].ImageURL)

		reply, err := q.AddMessage(ctx, domain.NewMessage{ThreadID: thread.ID, Role: domain.RoleAssistant, Content: "A cat."})
		require.NoError(t, err)
		assert.True(t, reply.CreatedAt.After(user.CreatedAt))
		assert.Nil(t, reply.ImageURL)

		history, err = q.ListMessages(ctx, thread.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, domain.RoleUser, history[0].Role)
		assert.Equal(t, domain.RoleAssistant, history[1].Role)

		touched, err := q.GetThread(ctx, thread.ID)
		require.NoError(t, err)
		assert.True(t, touched.UpdatedAt.After(thread.UpdatedAt))
	})

	t.Run("message for unknown thread", func(t *testing.T) {
		_, err := q.AddMessage(ctx, domain.NewMessage{ThreadID: uuid.New(), Role: domain.RoleUser, Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("active turn guard", func(t *testing.T) {
		thread, err := q.CreateThread(ctx)
		require.NoError(t, err)

		require.NoError(t, q.TryStartTurn(ctx, thread.ID))
		assert.ErrorIs(t, q.TryStartTurn(ctx, thread.ID), domain.ErrTurnInProgress)

		require.NoError(t, q.FinishTurn(ctx, thread.ID))
		require.NoError(t, q.TryStartTurn(ctx, thread.ID))

		n, err := q.CleanupStaleTurns(ctx, -time.Minute)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
		require.NoError(t, q.TryStartTurn(ctx, thread.ID))

		assert.ErrorIs(t, q.TryStartTurn(ctx, uuid.New()), domain.ErrThreadNotFound)
	})
}
