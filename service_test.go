package pypindex_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pypindex/pypindex"
	"github.com/pypindex/pypindex/memory"
)

// faultyStorage wraps a Storage and fails every method with err.
type faultyStorage struct {
	pypindex.Storage
	err error
}

func (f *faultyStorage) ListPackages(context.Context) ([]string, error) { return nil, f.err }
func (f *faultyStorage) ListFiles(context.Context, string) ([]pypindex.Artifact, error) {
	return nil, f.err
}
func (f *faultyStorage) ReadObject(context.Context, string) ([]byte, error) { return nil, f.err }
func (f *faultyStorage) WriteObject(context.Context, string, []byte) error  { return f.err }

func newService(t *testing.T, store pypindex.Storage) *pypindex.Service {
	t.Helper()
	svc, err := pypindex.NewService(store, pypindex.ServiceConfig{})
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("nil storage rejected", func(t *testing.T) {
		_, err := pypindex.NewService(nil, pypindex.ServiceConfig{})
		assert.Error(t, err)
	})

	t.Run("negative ttl rejected at construction", func(t *testing.T) {
		_, err := pypindex.NewService(memory.NewStore(), pypindex.ServiceConfig{PresignTTL: -time.Second})
		assert.ErrorIs(t, err, pypindex.ErrInvalidTTL)
	})

	t.Run("zero ttl selects the default", func(t *testing.T) {
		svc := newService(t, memory.NewStore())
		assert.Equal(t, 900*time.Second, svc.PresignTTL())
	})
}

func TestService_RootIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("serves cached page verbatim", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("index.html", []byte("<html>cached</html>"))
		store.Put("alpha/alpha-1.0.tar.gz", []byte("a"))
		svc := newService(t, store)

		page, err := svc.RootIndex(ctx)
		require.NoError(t, err)
		assert.Equal(t, "<html>cached</html>", page)
	})

	t.Run("falls back to a fresh listing before the first reindex", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("alpha/alpha-1.0.tar.gz", []byte("a"))
		store.Put("beta/beta-1.0.tar.gz", []byte("b"))
		svc := newService(t, store)

		page, err := svc.RootIndex(ctx)
		require.NoError(t, err)
		assert.Contains(t, page, `<a href="alpha/">alpha</a><br>`)
		assert.Contains(t, page, `<a href="beta/">beta</a><br>`)

		// The fallback stays read-only: the cache is the Reindexer's job.
		_, err = store.ReadObject(ctx, "index.html")
		assert.ErrorIs(t, err, pypindex.ErrNotFound)
	})

	t.Run("alpha and beta scenario", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("alpha/alpha-1.0.tar.gz", []byte("a"))
		store.Put("beta/beta-1.0.tar.gz", []byte("b"))
		svc := newService(t, store)

		require.NoError(t, svc.Reindex(ctx))
		page, err := svc.RootIndex(ctx)
		require.NoError(t, err)

		assert.Equal(t, pypindex.RenderRootIndex([]string{"alpha", "beta"}), page)
		assert.Less(t, strings.Index(page, "alpha/"), strings.Index(page, "beta/"))
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		svc := newService(t, &faultyStorage{err: pypindex.ErrStorageUnavailable})

		_, err := svc.RootIndex(ctx)
		assert.ErrorIs(t, err, pypindex.ErrStorageUnavailable)
	})
}

func TestService_PackageIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("files sorted with presigned hrefs carrying the ttl", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("fizz/fizz-2.0.tar.gz", []byte("2"))
		store.Put("fizz/fizz-1.0.tar.gz", []byte("1"))
		svc, err := pypindex.NewService(store, pypindex.ServiceConfig{PresignTTL: 300 * time.Second})
		require.NoError(t, err)

		page, err := svc.PackageIndex(ctx, "fizz")
		require.NoError(t, err)

		assert.Contains(t, page, "<title>Links for fizz</title>")
		assert.Contains(t, page, "fizz-1.0.tar.gz</a><br>")
		assert.Contains(t, page, "fizz-2.0.tar.gz</a><br>")
		assert.Equal(t, 2, strings.Count(page, "X-Amz-Expires=300"))
		assert.Less(t, strings.Index(page, "fizz-1.0"), strings.Index(page, "fizz-2.0"))
	})

	t.Run("empty package is not found", func(t *testing.T) {
		svc := newService(t, memory.NewStore())

		_, err := svc.PackageIndex(ctx, "ghost")
		assert.ErrorIs(t, err, pypindex.ErrNotFound)
	})

	t.Run("malformed name is not found", func(t *testing.T) {
		svc := newService(t, memory.NewStore())

		_, err := svc.PackageIndex(ctx, "-not-a-name-")
		assert.ErrorIs(t, err, pypindex.ErrNotFound)
	})

	t.Run("lookup is stable across client casings", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("friendly-bard/friendly_bard-1.0.tar.gz", []byte("fb"))
		svc := newService(t, store)

		for _, name := range []string{"friendly-bard", "Friendly_Bard", "FRIENDLY.BARD"} {
			page, err := svc.PackageIndex(ctx, name)
			require.NoError(t, err, "lookup %q", name)
			assert.Contains(t, page, "friendly_bard-1.0.tar.gz")
		}
	})

	t.Run("finds packages stored under their display name", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("Friendly_Bard/friendly_bard-1.0.tar.gz", []byte("fb"))
		svc := newService(t, store)

		page, err := svc.PackageIndex(ctx, "friendly-bard")
		require.NoError(t, err)
		assert.Contains(t, page, "friendly_bard-1.0.tar.gz")
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		svc := newService(t, &faultyStorage{err: pypindex.ErrStorageAuth})

		_, err := svc.PackageIndex(ctx, "fizz")
		assert.ErrorIs(t, err, pypindex.ErrStorageAuth)
	})
}

func TestService_Reindex(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the root page wholesale", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("alpha/alpha-1.0.tar.gz", []byte("a"))
		svc := newService(t, store)

		require.NoError(t, svc.Reindex(ctx))

		data, err := store.ReadObject(ctx, "index.html")
		require.NoError(t, err)
		assert.Equal(t, pypindex.RenderRootIndex([]string{"alpha"}), string(data))
	})

	t.Run("idempotent", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("alpha/alpha-1.0.tar.gz", []byte("a"))
		store.Put("beta/beta-1.0.tar.gz", []byte("b"))
		svc := newService(t, store)

		require.NoError(t, svc.Reindex(ctx))
		first, err := store.ReadObject(ctx, "index.html")
		require.NoError(t, err)

		require.NoError(t, svc.Reindex(ctx))
		require.NoError(t, svc.Reindex(ctx))
		again, err := store.ReadObject(ctx, "index.html")
		require.NoError(t, err)

		assert.Equal(t, string(first), string(again))
	})

	t.Run("emptied package disappears from the root page", func(t *testing.T) {
		store := memory.NewStore()
		store.Put("alpha/alpha-1.0.tar.gz", []byte("a"))
		store.Put("beta/beta-1.0.tar.gz", []byte("b"))
		svc := newService(t, store)

		require.NoError(t, svc.Reindex(ctx))

		store.Remove("beta/beta-1.0.tar.gz")
		require.NoError(t, svc.Reindex(ctx))

		data, err := store.ReadObject(ctx, "index.html")
		require.NoError(t, err)
		assert.Contains(t, string(data), "alpha/")
		assert.NotContains(t, string(data), "beta/")
	})

	t.Run("nothing written on listing failure", func(t *testing.T) {
		faulty := &faultyStorage{err: errors.New("listing blew up")}
		svc := newService(t, faulty)

		err := svc.Reindex(ctx)
		assert.Error(t, err)
	})
}
