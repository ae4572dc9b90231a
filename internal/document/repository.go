package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/askwhyharsh/fogofearth/internal/storage"
	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/klauspost/compress/zstd"
)

const (
	compressedSuffix = ".zst"
	legacySuffix     = ".json"
)

// Repository stores a Document under one key of a BlobStore. The current
// format is zstd-compressed JSON under "<key>.zst"; plain JSON under
// "<key>.json" is still read and is removed after the first save.
type Repository struct {
	store  storage.BlobStore
	key    string
	logger logger.Logger

	conflictDetection bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu       sync.Mutex
	observed int64
}

type Option func(*Repository)

// WithConflictDetection makes Save fail with ErrWriteConflict when the stored
// revision is newer than the one last loaded or saved through this repository.
func WithConflictDetection() Option {
	return func(r *Repository) {
		r.conflictDetection = true
	}
}

func WithLogger(log logger.Logger) Option {
	return func(r *Repository) {
		r.logger = log
	}
}

func NewRepository(store storage.BlobStore, key string, opts ...Option) (*Repository, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	r := &Repository{
		store:   store,
		key:     key,
		logger:  logger.NewNop(),
		encoder: encoder,
		decoder: decoder,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load reads the stored document. Missing or corrupt data yields an empty
// document; only a storage failure is returned as an error.
func (r *Repository) Load(ctx context.Context) (*Document, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.observed = doc.Revision
	r.mu.Unlock()

	return doc, nil
}

func (r *Repository) read(ctx context.Context) (*Document, error) {
	compressed, err := r.store.Load(ctx, r.key+compressedSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if compressed != nil {
		data, err := r.decoder.DecodeAll(compressed, nil)
		if err == nil {
			return Load(data), nil
		}
		r.logger.Warn("Discarding undecodable fog document", "key", r.key, "error", err)
	}

	legacy, err := r.store.Load(ctx, r.key+legacySuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if legacy == nil {
		return &Document{}, nil
	}
	return Load(legacy), nil
}

// Save writes doc and bumps its revision. On success doc.Revision holds the
// stored revision.
func (r *Repository) Save(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflictDetection {
		current, err := r.read(ctx)
		if err != nil {
			return err
		}
		if current.Revision > r.observed {
			return fmt.Errorf("%w: stored revision %d, last seen %d",
				apperrors.ErrWriteConflict, current.Revision, r.observed)
		}
	}

	next := doc.Revision
	if r.observed > next {
		next = r.observed
	}
	next++

	out := *doc
	out.Revision = next
	data, err := Save(&out)
	if err != nil {
		return err
	}

	if err := r.store.Save(ctx, r.key+compressedSuffix, r.encoder.EncodeAll(data, nil)); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	if err := r.store.Delete(ctx, r.key+legacySuffix); err != nil {
		r.logger.Warn("Failed to remove legacy fog document", "key", r.key, "error", err)
	}

	doc.Revision = next
	if doc.SchemaVersion < CurrentSchemaVersion {
		doc.SchemaVersion = CurrentSchemaVersion
	}
	r.observed = next
	return nil
}

// Clear removes both stored forms.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range []string{r.key + compressedSuffix, r.key + legacySuffix} {
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
		}
	}
	r.observed = 0
	return nil
}

// Revision returns the revision last loaded or saved.
func (r *Repository) Revision() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed
}
