package simpleoss_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	memorystorage "github.com/tendant/simple-oss/pkg/simpleoss/storage/memory"
)

func TestNew(t *testing.T) {
	store := memorystorage.New(memorystorage.Config{})

	_, err := simpleoss.New(simpleoss.Config{}, store)
	assert.ErrorIs(t, err, simpleoss.ErrMissingBucket)

	_, err = simpleoss.New(simpleoss.Config{Bucket: "b"}, nil)
	assert.ErrorIs(t, err, simpleoss.ErrMissingStore)

	a, err := simpleoss.New(simpleoss.Config{Bucket: "b"}, nil, simpleoss.WithStoreFactory(memorystorage.NewFromConfig))
	require.NoError(t, err)
	assert.NotNil(t, a.Store())
	assert.Equal(t, "b", a.Bucket())
}

func TestAdapter_ReadWrite(t *testing.T) {
	ctx := context.Background()
	adapter, store := newTestAdapter(t, func(c *simpleoss.Config) { c.Prefix = "root" })

	t.Run("write and read", func(t *testing.T) {
		require.NoError(t, adapter.Write(ctx, "docs/a.txt", []byte("hello")))

		ok, err := adapter.FileExists(ctx, "docs/a.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		// stored under the prefix
		ok, err = store.Exists(ctx, "test-bucket", "root/docs/a.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := adapter.Read(ctx, "docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("content type detection", func(t *testing.T) {
		require.NoError(t, adapter.Write(ctx, "docs/page.html", []byte("<html></html>")))
		attrs, err := adapter.MimeType(ctx, "docs/page.html")
		require.NoError(t, err)
		assert.Equal(t, "text/html", attrs.MimeType)

		require.NoError(t, adapter.Write(ctx, "docs/blob", []byte("%PDF-1.4\n")))
		attrs, err = adapter.MimeType(ctx, "docs/blob")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", attrs.MimeType)
	})

	t.Run("explicit content type", func(t *testing.T) {
		require.NoError(t, adapter.Write(ctx, "docs/data.bin", []byte("{}"), simpleoss.WithContentType("application/json")))
		attrs, err := adapter.GetFileAttributes(ctx, "docs/data.bin")
		require.NoError(t, err)
		assert.Equal(t, "application/json", attrs.MimeType)
	})

	t.Run("stream", func(t *testing.T) {
		require.NoError(t, adapter.WriteStream(ctx, "docs/s.txt", strings.NewReader("streamed")))
		rc, err := adapter.ReadStream(ctx, "docs/s.txt")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "streamed", string(data))
	})

	t.Run("attributes", func(t *testing.T) {
		attrs, err := adapter.FileSize(ctx, "docs/a.txt")
		require.NoError(t, err)
		size, ok := attrs.Size()
		require.True(t, ok)
		assert.Equal(t, int64(5), size)
		assert.Equal(t, "docs/a.txt", attrs.Path)

		attrs, err = adapter.LastModified(ctx, "docs/a.txt")
		require.NoError(t, err)
		assert.NotNil(t, attrs.LastModified)
	})

	t.Run("without prefix", func(t *testing.T) {
		require.NoError(t, adapter.Write(ctx, "raw.txt", []byte("x"), simpleoss.WithoutPrefix()))
		ok, err := store.Exists(ctx, "test-bucket", "raw.txt")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("forbid overwrite", func(t *testing.T) {
		err := adapter.Write(ctx, "docs/a.txt", []byte("again"), simpleoss.ForbidOverwrite())
		require.Error(t, err)
		assert.Equal(t, 409, simpleoss.StatusCode(err))

		data, err := adapter.Read(ctx, "docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, adapter.Delete(ctx, "docs/s.txt"))
		ok, err := adapter.FileExists(ctx, "docs/s.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := adapter.Read(ctx, "nope.txt")
		assert.True(t, simpleoss.IsNotFound(err))
		assert.ErrorIs(t, err, simpleoss.ErrObjectNotFound)

		_, err = adapter.GetFileAttributes(ctx, "nope.txt")
		assert.True(t, simpleoss.IsNotFound(err))
	})
}

func TestAdapter_Directories(t *testing.T) {
	ctx := context.Background()
	adapter, store := newTestAdapter(t, func(c *simpleoss.Config) { c.Prefix = "root" })

	require.NoError(t, adapter.CreateDirectory(ctx, "photos"))
	ok, err := store.Exists(ctx, "test-bucket", "root/photos/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adapter.DirectoryExists(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, adapter.DeleteDirectory(ctx, "photos"))

	_, err = adapter.ListContents(ctx, "photos", true)
	assert.ErrorIs(t, err, simpleoss.ErrNotImplemented)
}

func TestAdapter_Visibility(t *testing.T) {
	ctx := context.Background()

	t.Run("inherits bucket acl", func(t *testing.T) {
		adapter, store := newTestAdapter(t, nil)
		require.NoError(t, adapter.Write(ctx, "a.txt", []byte("x")))

		attrs, err := adapter.Visibility(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.VisibilityPrivate, attrs.Visibility)

		store.SetBucketACL("test-bucket", simpleoss.ACLPublicRead)
		attrs, err = adapter.Visibility(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.VisibilityPublic, attrs.Visibility)
	})

	t.Run("configured acl wins over bucket", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, func(c *simpleoss.Config) { c.ACL = simpleoss.ACLPublicRead })
		require.NoError(t, adapter.Write(ctx, "a.txt", []byte("x")))

		attrs, err := adapter.Visibility(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.VisibilityPublic, attrs.Visibility)
	})

	t.Run("set visibility", func(t *testing.T) {
		adapter, store := newTestAdapter(t, func(c *simpleoss.Config) { c.Prefix = "root" })
		require.NoError(t, adapter.Write(ctx, "a.txt", []byte("x")))

		require.NoError(t, adapter.SetVisibility(ctx, "a.txt", simpleoss.VisibilityPublic))
		acl, err := store.GetObjectACL(ctx, "test-bucket", "root/a.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.ACLPublicRead, acl)

		attrs, err := adapter.Visibility(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.VisibilityPublic, attrs.Visibility)

		require.NoError(t, adapter.SetVisibility(ctx, "a.txt", simpleoss.VisibilityPrivate))
		attrs, err = adapter.Visibility(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.VisibilityPrivate, attrs.Visibility)
	})

	t.Run("visibility on write", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, nil)
		require.NoError(t, adapter.Write(ctx, "pub.txt", []byte("x"), simpleoss.WithVisibility(simpleoss.VisibilityPublic)))
		attrs, err := adapter.Visibility(ctx, "pub.txt")
		require.NoError(t, err)
		assert.Equal(t, simpleoss.VisibilityPublic, attrs.Visibility)
	})

	t.Run("missing object", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, nil)
		err := adapter.SetVisibility(ctx, "nope.txt", simpleoss.VisibilityPublic)
		assert.True(t, simpleoss.IsNotFound(err))
	})
}

// failingDeleteStore is a memory store whose Delete always fails.
type failingDeleteStore struct {
	*memorystorage.Backend
}

var errDeleteFailed = errors.New("delete failed")

func (s failingDeleteStore) Delete(ctx context.Context, bucket, key string) error {
	return errDeleteFailed
}

func TestAdapter_CopyMove(t *testing.T) {
	ctx := context.Background()

	t.Run("copy", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, func(c *simpleoss.Config) { c.Prefix = "root" })
		require.NoError(t, adapter.Write(ctx, "a.txt", []byte("hello")))

		require.NoError(t, adapter.Copy(ctx, "a.txt", "b.txt"))
		for _, p := range []string{"a.txt", "b.txt"} {
			data, err := adapter.Read(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))
		}
	})

	t.Run("copy missing source", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, nil)
		err := adapter.Copy(ctx, "nope.txt", "b.txt")
		assert.True(t, simpleoss.IsNotFound(err))
	})

	t.Run("move", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, nil)
		require.NoError(t, adapter.Write(ctx, "a.txt", []byte("hello")))

		require.NoError(t, adapter.Move(ctx, "a.txt", "moved/a.txt"))

		ok, err := adapter.FileExists(ctx, "a.txt")
		require.NoError(t, err)
		assert.False(t, ok)
		data, err := adapter.Read(ctx, "moved/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("move with failing delete keeps both", func(t *testing.T) {
		store := failingDeleteStore{memorystorage.New(memorystorage.Config{})}
		adapter, err := simpleoss.New(testConfig(), store)
		require.NoError(t, err)
		require.NoError(t, adapter.Write(ctx, "a.txt", []byte("hello")))

		err = adapter.Move(ctx, "a.txt", "b.txt")
		require.Error(t, err)
		assert.ErrorIs(t, err, errDeleteFailed)

		for _, p := range []string{"a.txt", "b.txt"} {
			ok, err := adapter.FileExists(ctx, p)
			require.NoError(t, err)
			assert.True(t, ok, p)
		}
	})

	t.Run("move with missing source copies nothing", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, nil)
		err := adapter.Move(ctx, "nope.txt", "b.txt")
		require.Error(t, err)
		ok, err := adapter.FileExists(ctx, "b.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAdapter_WithConfig(t *testing.T) {
	ctx := context.Background()
	var built int
	factory := func(cfg simpleoss.Config) (simpleoss.ObjectStore, error) {
		built++
		return memorystorage.NewFromConfig(cfg)
	}

	base, err := simpleoss.New(testConfig(), nil, simpleoss.WithStoreFactory(factory))
	require.NoError(t, err)
	require.Equal(t, 1, built)

	t.Run("copy on write", func(t *testing.T) {
		derived, err := base.WithConfig(func(c *simpleoss.Config) { c.Prefix = "tenant-a" })
		require.NoError(t, err)

		assert.Equal(t, "", base.Config().Prefix)
		assert.Equal(t, "tenant-a", derived.Config().Prefix)
		assert.Equal(t, "tenant-a", derived.Prefixer().Prefix())
		assert.Same(t, base.Store(), derived.Store(), "same connection shares the store")
		assert.Equal(t, 1, built)

		require.NoError(t, derived.Write(ctx, "a.txt", []byte("x")))
		ok, err := base.FileExists(ctx, "tenant-a/a.txt")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("new connection builds a store", func(t *testing.T) {
		derived, err := base.WithConfig(func(c *simpleoss.Config) { c.AccessKeyID = "other" })
		require.NoError(t, err)
		assert.NotSame(t, base.Store(), derived.Store())
		assert.Equal(t, 2, built)
		assert.Equal(t, "ak", base.Config().AccessKeyID)
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := base.WithConfig(func(c *simpleoss.Config) { c.Bucket = "" })
		assert.ErrorIs(t, err, simpleoss.ErrMissingBucket)
	})

	t.Run("factory error", func(t *testing.T) {
		failing, err := simpleoss.New(testConfig(), memorystorage.New(memorystorage.Config{}),
			simpleoss.WithStoreFactory(func(simpleoss.Config) (simpleoss.ObjectStore, error) {
				return nil, errors.New("boom")
			}))
		require.NoError(t, err)
		_, err = failing.WithConfig(func(c *simpleoss.Config) { c.Endpoint = "oss-cn-beijing.aliyuncs.com" })
		assert.ErrorContains(t, err, "boom")
	})
}

func TestAdapter_WithBucket(t *testing.T) {
	ctx := context.Background()
	adapter, store := newTestAdapter(t, nil)

	other := adapter.WithBucket("other-bucket")
	assert.Equal(t, "test-bucket", adapter.Bucket())
	assert.Equal(t, "other-bucket", other.Bucket())
	assert.Equal(t, "other-bucket.oss-cn-hangzhou.aliyuncs.com", other.OSSOriginalDomain(false))

	require.NoError(t, other.Write(ctx, "a.txt", []byte("x")))
	ok, err := store.Exists(ctx, "other-bucket", "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adapter.FileExists(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
