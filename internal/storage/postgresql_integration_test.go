package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"subsync-bot/internal/migrations"
	"subsync-bot/internal/models"
)

func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

func TestStorage_UpsertUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	u, err := storage.UpsertUser(ctx, 100, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.ChatID)
	assert.Equal(t, models.StatusNone, u.SubscriptionStatus)
	assert.Nil(t, u.Email)
	assert.Nil(t, u.SubscriptionEndDate)

	// повторный /start обновляет профиль, не трогая подписку
	end := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	require.NoError(t, storage.UpdateSubscription(ctx, 100, models.StatusActive, &end, true))

	u, err = storage.UpsertUser(ctx, 100, "alice_new", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_new", u.Username)
	assert.Equal(t, models.StatusActive, u.SubscriptionStatus)
	require.NotNil(t, u.SubscriptionEndDate)
	assert.True(t, u.SubscriptionEndDate.Equal(end))
}

func TestStorage_UpdateEmail_ResetsSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	_, err := storage.UpsertUser(ctx, 200, "bob", "Bob")
	require.NoError(t, err)

	end := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	require.NoError(t, storage.UpdateSubscription(ctx, 200, models.StatusActive, &end, false))

	require.NoError(t, storage.UpdateEmail(ctx, 200, "bob@example.com"))

	u, err := storage.FindByChatID(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, u.Email)
	assert.Equal(t, "bob@example.com", *u.Email)
	assert.Equal(t, models.StatusNone, u.SubscriptionStatus)
	assert.Nil(t, u.SubscriptionEndDate)
}

func TestStorage_FindByEmail(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	_, err := storage.UpsertUser(ctx, 300, "carol", "Carol")
	require.NoError(t, err)
	require.NoError(t, storage.UpdateEmail(ctx, 300, "carol@example.com"))

	u, err := storage.FindByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(300), u.ChatID)

	_, err = storage.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_UpdateSubscription_UnknownUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := storage.UpdateSubscription(context.Background(), 999, models.StatusActive, nil, false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_FindExpiringWithin(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	soon := time.Now().AddDate(0, 0, 3)
	far := time.Now().AddDate(0, 2, 0)
	justLapsed := time.Now().AddDate(0, 0, -2)
	longLapsed := time.Now().AddDate(0, -6, 0)

	_, err := storage.UpsertUser(ctx, 401, "expiring", "User")
	require.NoError(t, err)
	require.NoError(t, storage.UpdateSubscription(ctx, 401, models.StatusActive, &soon, false))

	_, err = storage.UpsertUser(ctx, 402, "longterm", "User")
	require.NoError(t, err)
	require.NoError(t, storage.UpdateSubscription(ctx, 402, models.StatusActive, &far, false))

	_, err = storage.UpsertUser(ctx, 403, "lapsed", "User")
	require.NoError(t, err)
	require.NoError(t, storage.UpdateSubscription(ctx, 403, models.StatusExpired, &justLapsed, false))

	// подписка истекла полгода назад, напоминания ей больше не положены
	_, err = storage.UpsertUser(ctx, 404, "longlapsed", "User")
	require.NoError(t, err)
	require.NoError(t, storage.UpdateSubscription(ctx, 404, models.StatusExpired, &longLapsed, false))

	users, err := storage.FindExpiringWithin(ctx, 7)
	require.NoError(t, err)

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ChatID)
	}
	assert.ElementsMatch(t, []int64{401, 403}, ids)

	// после отметки о напоминании пользователь выпадает из выборки на сутки
	require.NoError(t, storage.MarkReminderSent(ctx, 401))

	users, err = storage.FindExpiringWithin(ctx, 7)
	require.NoError(t, err)
	ids = ids[:0]
	for _, u := range users {
		ids = append(ids, u.ChatID)
	}
	assert.ElementsMatch(t, []int64{403}, ids)
}
