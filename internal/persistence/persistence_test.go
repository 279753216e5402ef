package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/config"
)

func TestMigrationFilesEmbedded(t *testing.T) {
	names, err := MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "00001_credential_stores.sql", names[0])

	body, err := migrationsFS.ReadFile(migrationsDir + "/" + names[0])
	require.NoError(t, err)
	for _, constraint := range []string{"uq_users_email", "uq_staff_staff_id", "uq_admins_email"} {
		assert.Contains(t, string(body), constraint)
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrNotConfigured)
	pg.Close()
}

func TestRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	defer r.Close()

	assert.NoError(t, r.Ping(context.Background()))

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))

	var missing *Redis
	assert.ErrorIs(t, missing.Ping(context.Background()), ErrNotConfigured)
}
