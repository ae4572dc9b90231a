package document

import (
	"context"
	"errors"
	"testing"

	"github.com/askwhyharsh/fogofearth/internal/reveal"
	"github.com/askwhyharsh/fogofearth/internal/storage"
	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) Save(ctx context.Context, key string, data []byte) error {
	return errors.New("disk gone")
}

func (failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("disk gone")
}

func newRepo(t *testing.T, blobs storage.BlobStore, opts ...Option) *Repository {
	t.Helper()
	repo, err := NewRepository(blobs, "fog_state", opts...)
	require.NoError(t, err)
	return repo
}

func TestRepository_EmptyStore(t *testing.T) {
	repo := newRepo(t, storage.NewFileBlobStore(t.TempDir()))

	doc, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
}

func TestRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewFileBlobStore(t.TempDir())
	repo := newRepo(t, blobs)

	store := reveal.NewStore(reveal.DefaultOptions(), samplePoints, samplePoints[:1])
	doc := FromStore(store)
	require.NoError(t, repo.Save(ctx, doc))
	assert.Equal(t, int64(1), doc.Revision)

	raw, err := blobs.Load(ctx, "fog_state.zst")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	loaded, err := newRepo(t, blobs).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Revision)
	assert.Len(t, loaded.LayerPoints(reveal.LayerPrimary), 3)
	assert.Len(t, loaded.LayerPoints(reveal.LayerShared), 1)
}

func TestRepository_MigratesLegacyFile(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewFileBlobStore(t.TempDir())
	require.NoError(t, blobs.Save(ctx, "fog_state.json", []byte(`[{"lat":10,"lon":20},{"lat":10.001,"lon":20}]`)))

	repo := newRepo(t, blobs)
	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.LayerPoints(reveal.LayerPrimary), 2)

	require.NoError(t, repo.Save(ctx, doc))

	legacy, err := blobs.Load(ctx, "fog_state.json")
	require.NoError(t, err)
	assert.Nil(t, legacy, "legacy file is removed after saving")

	again, err := newRepo(t, blobs).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, again.SchemaVersion)
	assert.Len(t, again.LayerPoints(reveal.LayerPrimary), 2)
}

func TestRepository_CorruptCompressedFallsBackToLegacy(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewFileBlobStore(t.TempDir())
	require.NoError(t, blobs.Save(ctx, "fog_state.zst", []byte("not zstd")))
	require.NoError(t, blobs.Save(ctx, "fog_state.json", []byte(`[{"lat":1,"lon":1}]`)))

	doc, err := newRepo(t, blobs).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.LayerPoints(reveal.LayerPrimary), 1)
}

func TestRepository_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewFileBlobStore(t.TempDir())
	a := newRepo(t, blobs)
	b := newRepo(t, blobs)

	require.NoError(t, a.Save(ctx, &Document{}))
	require.NoError(t, b.Save(ctx, &Document{}))
	require.NoError(t, a.Save(ctx, &Document{}))
}

func TestRepository_ConflictDetection(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewFileBlobStore(t.TempDir())
	a := newRepo(t, blobs, WithConflictDetection())
	b := newRepo(t, blobs, WithConflictDetection())

	_, err := a.Load(ctx)
	require.NoError(t, err)
	_, err = b.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, &Document{}))

	err = b.Save(ctx, &Document{})
	assert.ErrorIs(t, err, apperrors.ErrWriteConflict)

	_, err = b.Load(ctx)
	require.NoError(t, err)
	assert.NoError(t, b.Save(ctx, &Document{}))
	assert.Equal(t, int64(2), b.Revision())
}

func TestRepository_Clear(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewFileBlobStore(t.TempDir())
	repo := newRepo(t, blobs)

	require.NoError(t, repo.Save(ctx, FromStore(reveal.NewStore(reveal.DefaultOptions(), samplePoints, nil))))
	require.NoError(t, repo.Clear(ctx))

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
}

func TestRepository_StorageFailure(t *testing.T) {
	repo := newRepo(t, failingStore{})

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.ErrorIs(t, repo.Save(context.Background(), &Document{}), apperrors.ErrStorageUnavailable)
}
