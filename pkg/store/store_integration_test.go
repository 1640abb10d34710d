//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/samahstore/catalog/pkg/catalog"
	"github.com/samahstore/catalog/pkg/store/migrations"
)

// setupPostgres starts a migrated PostgreSQL container.
func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catalog"),
		tcpostgres.WithUsername("catalog"),
		tcpostgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrations.New(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	pool, err := OpenPostgres(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	pg := NewPostgres(pool, zerolog.Nop())
	require.NoError(t, WaitReady(ctx, "postgres", pg.Ping, DefaultRetryConfig()))
	return pg
}

// setupRedis starts a Redis container and returns a client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestPostgres_Integration_Categories(t *testing.T) {
	pg := setupPostgres(t)
	repo := pg.Categories()
	ctx := context.Background()

	books, err := repo.Create(ctx, catalog.CategoryInput{Name: "Books", Slug: "books", Active: true})
	require.NoError(t, err)
	assert.NotZero(t, books.ID)
	assert.Equal(t, books.UpdatedAt, books.UpdatedAt.Truncate(time.Millisecond), "timestamps are millisecond precision")

	_, err = repo.Create(ctx, catalog.CategoryInput{Name: "Archive", Slug: "archive", Active: false})
	require.NoError(t, err)

	_, err = repo.Create(ctx, catalog.CategoryInput{Name: "Other", Slug: "books"})
	assert.ErrorIs(t, err, catalog.ErrConflict)
	_, err = repo.Create(ctx, catalog.CategoryInput{Name: "BOOKS", Slug: "books-2"})
	assert.ErrorIs(t, err, catalog.ErrConflict)

	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "books", list[0].Slug)

	updated, err := repo.Update(ctx, books.ID, catalog.CategoryInput{Name: "Novels", Slug: "novels", Active: true})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(books.UpdatedAt))
	assert.NotEqual(t, catalog.CategoriesETag([]catalog.Category{books}), catalog.CategoriesETag([]catalog.Category{updated}))

	_, err = repo.Update(ctx, 9999, catalog.CategoryInput{Name: "x", Slug: "x"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, books.ID))
	assert.ErrorIs(t, repo.Delete(ctx, books.ID), catalog.ErrNotFound)
}

func TestPostgres_Integration_CategoryETagChangesOnEveryWrite(t *testing.T) {
	pg := setupPostgres(t)
	repo := pg.Categories()
	ctx := context.Background()

	a, err := repo.Create(ctx, catalog.CategoryInput{Name: "Books", Slug: "books", Active: true})
	require.NoError(t, err)
	b, err := repo.Create(ctx, catalog.CategoryInput{Name: "Toys", Slug: "toys", Active: true})
	require.NoError(t, err)
	assert.True(t, b.UpdatedAt.After(a.UpdatedAt))

	etag := func() string {
		list, err := repo.ListActive(ctx)
		require.NoError(t, err)
		return catalog.CategoriesETag(list)
	}

	seen := map[string]bool{etag(): true}
	for i, id := range []int64{b.ID, a.ID, b.ID, a.ID} {
		slug := "renamed-" + string(rune('a'+i))
		_, err := repo.Update(ctx, id, catalog.CategoryInput{Name: slug, Slug: slug, Active: true})
		require.NoError(t, err)
		tag := etag()
		assert.False(t, seen[tag], "update %d reused ETag %s", i, tag)
		seen[tag] = true
	}
}

func TestPostgres_Integration_Products(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	c, err := pg.Categories().Create(ctx, catalog.CategoryInput{Name: "Toys", Slug: "toys", Active: true})
	require.NoError(t, err)

	_, err = pg.pool.Exec(ctx, `
		INSERT INTO products (category_id, name, slug, description, price, active)
		VALUES ($1, 'Kite', 'kite', 'Flies in the wind', 25.00, true),
		       ($1, 'Yo-yo', 'yo-yo', NULL, 3.50, true),
		       ($1, 'Hidden', 'hidden', 'kite', 1.00, false)`, c.ID)
	require.NoError(t, err)

	kite, err := pg.Products().GetBySlug(ctx, "kite")
	require.NoError(t, err)
	assert.Equal(t, "toys", kite.CategorySlug)
	assert.InDelta(t, 25.0, kite.Price, 0.001)

	_, err = pg.Products().GetBySlug(ctx, "hidden")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	page, err := pg.Products().Search(ctx, catalog.Query{Q: "KITE"}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalItems)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "kite", page.Items[0].Slug)

	assert.ErrorIs(t, pg.Categories().Delete(ctx, c.ID), catalog.ErrConflict)
}

func TestRedisHero_Integration(t *testing.T) {
	client := setupRedis(t)
	repo := NewRedisHero(client, zerolog.Nop())
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	saved, err := repo.Save(ctx, catalog.HeroInput{Title: "Spring sale", CTAText: "Shop", CTALink: "/sale", Active: true})
	require.NoError(t, err)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.Title, got.Title)
	assert.True(t, saved.UpdatedAt.Equal(got.UpdatedAt))

	etagSaved, err := catalog.HeroETag(saved)
	require.NoError(t, err)
	etagGot, err := catalog.HeroETag(got)
	require.NoError(t, err)
	assert.Equal(t, etagSaved, etagGot)
}

func TestRedisHero_Integration_SameMillisecondSaves(t *testing.T) {
	client := setupRedis(t)
	repo := NewRedisHero(client, zerolog.Nop())
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }
	ctx := context.Background()

	first, err := repo.Save(ctx, catalog.HeroInput{Title: "One", Active: true})
	require.NoError(t, err)
	second, err := repo.Save(ctx, catalog.HeroInput{Title: "Two", Active: true})
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	etagFirst, err := catalog.HeroETag(first)
	require.NoError(t, err)
	etagSecond, err := catalog.HeroETag(second)
	require.NoError(t, err)
	assert.NotEqual(t, etagFirst, etagSecond)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(second.UpdatedAt))
}
