package dictstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/storage"
)

type staticSource map[string][]dictionary.ValueCount

func (s staticSource) Query(_ context.Context, table, attribute string, _ filter.Expression) (dictionary.Rows, error) {
	return dictionary.Rows{Statement: "static", Values: s[attribute]}, nil
}

var source = staticSource{
	"country": {{Value: "US", Count: 9}, {Value: "DE", Count: 1}},
	"plan":    {{Value: "free", Count: 3}},
}

type brokenStore struct {
	storage.BlobStore
}

func (brokenStore) EnsureNamespace(context.Context, string) error {
	return storage.ErrStorage
}

func (brokenStore) Exists(context.Context, string) (bool, error) {
	return false, storage.ErrStorage
}

func TestCacheKeyFor(t *testing.T) {
	s := New(storage.NewMemoryStore())
	assert.Equal(t, "table_dictionary/users.txt", s.CacheKeyFor("users"))

	s = New(storage.NewMemoryStore(), WithNamespace("dicts"), WithSuffix(".tdic"))
	assert.Equal(t, "dicts/users.tdic", s.CacheKeyFor("users"))
}

func TestLoadColdStart(t *testing.T) {
	s := New(storage.NewMemoryStore())
	d, err := s.Load(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "users", d.Table())
	assert.Zero(t, d.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		blobs := storage.NewFileStore(t.TempDir())
		s := New(blobs, WithCompression(compress), WithDictionaryOptions(dictionary.WithRowSource(source)))
		ctx := context.Background()

		d, err := s.Load(ctx, "users")
		require.NoError(t, err)
		require.NoError(t, d.BulkGenerate(ctx, []string{"country", "plan"}, nil))
		require.NoError(t, d.Generate(ctx, "nickname", nil))
		require.NoError(t, s.Save(ctx, d))

		ok, err := blobs.Exists(ctx, "table_dictionary/users.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Load(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, d.Attributes(), got.Attributes())
		for _, a := range d.Attributes() {
			want, _ := d.Entry(a)
			have, _ := got.Entry(a)
			assert.Equal(t, want.TotalCount, have.TotalCount)
			assert.ElementsMatch(t, want.Values, have.Values)
			assert.Equal(t, want.Query.Statement, have.Query.Statement)
		}

		// dictionaries from the store can generate again
		require.NoError(t, got.Generate(ctx, "country", nil))
	}
}

func TestSaveOverwrites(t *testing.T) {
	blobs := storage.NewMemoryStore()
	s := New(blobs, WithDictionaryOptions(dictionary.WithRowSource(source)))
	ctx := context.Background()

	d := dictionary.New("users", dictionary.WithRowSource(source))
	require.NoError(t, d.Generate(ctx, "country", nil))
	require.NoError(t, s.Save(ctx, d))
	require.NoError(t, s.Save(ctx, dictionary.New("users")))

	got, err := s.Load(ctx, "users")
	require.NoError(t, err)
	assert.Zero(t, got.Len())
	assert.Equal(t, 1, blobs.Keys())
}

func TestLoadCorruptBlob(t *testing.T) {
	blobs := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, "table_dictionary/users.txt", []byte("a:0:{}")))

	_, err := New(blobs).Load(ctx, "users")
	assert.ErrorIs(t, err, dictionary.ErrCorruptBlob)
}

func TestStorageErrorsSurface(t *testing.T) {
	s := New(brokenStore{storage.NewMemoryStore()})
	ctx := context.Background()

	err := s.Save(ctx, dictionary.New("users"))
	assert.ErrorIs(t, err, storage.ErrStorage)

	_, err = s.Load(ctx, "users")
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func TestInvalidTableName(t *testing.T) {
	s := New(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := s.Load(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, dictionary.ErrInvalidInput)
	assert.ErrorIs(t, s.Save(ctx, dictionary.New("a b")), dictionary.ErrInvalidInput)
}

func TestUpdate(t *testing.T) {
	blobs := storage.NewMemoryStore()
	s := New(blobs, WithDictionaryOptions(dictionary.WithRowSource(source)))
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "users", func(d *dictionary.Dictionary) error {
		return d.Generate(ctx, "country", nil)
	}))
	require.NoError(t, s.Update(ctx, "users", func(d *dictionary.Dictionary) error {
		assert.True(t, d.HasEntry("country"))
		return d.Generate(ctx, "plan", nil)
	}))

	d, err := s.Load(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "plan"}, d.Attributes())
}

func TestUpdateFailureDoesNotSave(t *testing.T) {
	blobs := storage.NewMemoryStore()
	s := New(blobs)
	boom := errors.New("boom")

	err := s.Update(context.Background(), "users", func(*dictionary.Dictionary) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, blobs.Keys())
}

func TestUpdateSerializesWriters(t *testing.T) {
	blobs := storage.NewMemoryStore()
	s := New(blobs, WithDictionaryOptions(dictionary.WithRowSource(source)))
	ctx := context.Background()

	attrs := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"}
	var wg sync.WaitGroup
	for _, a := range attrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Update(ctx, "users", func(d *dictionary.Dictionary) error {
				return d.Generate(ctx, a, nil)
			}))
		}()
	}
	wg.Wait()

	d, err := s.Load(ctx, "users")
	require.NoError(t, err)
	assert.ElementsMatch(t, attrs, d.Attributes(), "no update may be lost")
}
