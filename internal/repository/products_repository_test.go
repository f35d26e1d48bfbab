package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshiend/retail-Link-sub000/internal/models"
)

// unreachableRedis points at a closed port so every command fails at once
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func newCachedRepository(t *testing.T, client *redis.Client) (*ProductsRepository, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	return NewProductsRepository(nil, client, time.Minute, logrus.NewEntry(logger)), hook
}

func TestProductsRepository_CachedWithoutRedis(t *testing.T) {
	repo, hook := newCachedRepository(t, nil)
	want := &models.Product{CatalogFields: models.CatalogFields{ID: uuid.New(), Name: "Tee"}}
	calls := 0

	got, err := repo.cached(context.Background(), "product:a:b", func() (*models.Product, error) {
		calls++
		return want, nil
	})

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, hook.AllEntries())
}

func TestProductsRepository_CachedFallsBackWhenRedisFails(t *testing.T) {
	repo, hook := newCachedRepository(t, unreachableRedis(t))
	want := &models.Product{CatalogFields: models.CatalogFields{ID: uuid.New(), Name: "Tee"}}
	calls := 0

	got, err := repo.cached(context.Background(), "product:"+uuid.NewString(), func() (*models.Product, error) {
		calls++
		return want, nil
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "Tee", got.Name)
	assert.Equal(t, 1, calls)
	for _, entry := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
	}
}

func TestProductsRepository_CachedReturnsLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		client func(t *testing.T) *redis.Client
	}{
		{"without redis", func(*testing.T) *redis.Client { return nil }},
		{"redis unreachable", unreachableRedis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newCachedRepository(t, tt.client(t))

			got, err := repo.cached(context.Background(), "product:"+uuid.NewString(), func() (*models.Product, error) {
				return nil, ErrNotFound
			})

			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}
