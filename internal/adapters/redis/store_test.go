package redis_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroomhq/warroom/internal/adapters/file"
	"github.com/warroomhq/warroom/internal/adapters/redis"
	"github.com/warroomhq/warroom/pkg/domain"
	"github.com/warroomhq/warroom/pkg/ports/storetest"
)

func newTestStore(t *testing.T, opts ...redis.Option) *redis.Store {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	opts = append([]redis.Option{redis.WithExportPath(filepath.Join(t.TempDir(), "exports"))}, opts...)
	return redis.NewFromClient(client, opts...)
}

func TestRedisStore_Contract(t *testing.T) {
	storetest.Run(t, newTestStore(t))
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	store := newTestStore(t, redis.WithPrefix("custom:"))
	ctx := context.Background()

	session := domain.NewSession("prefixed", domain.ModeOffensive)
	location, err := store.Save(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "custom:"+session.ID, location)
}

func TestRedisStore_ExportReadableByFileStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := domain.NewSession("portable", domain.ModeDefensive)
	session.AddFinding("default creds", domain.SeverityCritical, "admin/admin accepted", "hydra", nil)
	_, err := store.Save(ctx, session)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "portable.wrs")
	require.NoError(t, store.Export(ctx, session.ID, dest))

	fileStore := file.New(filepath.Join(t.TempDir(), "sessions"))
	id, err := fileStore.Import(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, session.ID, id)

	loaded, err := fileStore.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, loaded.Findings, 1)
	assert.Equal(t, domain.SeverityCritical, loaded.Findings[0].Severity)
}

func TestRedisStore_ListPrunesDanglingIndexEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client)
	ctx := context.Background()

	session := domain.NewSession("survivor", domain.ModeOffensive)
	_, err = store.Save(ctx, session)
	require.NoError(t, err)

	// Simulate a value that expired out from under its index entry.
	client.ZAdd(ctx, "warroom:session:index", backend.Z{Score: 1, Member: "session_dangling"})

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, session.ID, summaries[0].ID)

	// The dangling entry is gone from the index now.
	ids, err := client.ZRange(ctx, "warroom:session:index", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{session.ID}, ids)
}
