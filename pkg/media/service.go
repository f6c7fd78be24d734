package media

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/pkg/observability"
)

// Service coordinates media metadata and blob content so the two never
// drift: the blob is written before the row exists and removed when the
// row insert fails.
type Service struct {
	store   *Store
	blobs   BlobStore
	metrics *observability.Metrics
}

// NewService creates a media service. metrics may be nil.
func NewService(store *Store, blobs BlobStore, metrics *observability.Metrics) *Service {
	return &Service{store: store, blobs: blobs, metrics: metrics}
}

// Upload stores the content and its metadata row. The Media's Size and Hash
// are filled in from what was actually written.
func (s *Service) Upload(ctx context.Context, m *Media, content io.Reader) error {
	if m.TreeID == "" {
		return fmt.Errorf("tree id is required")
	}
	if m.FileName == "" {
		return fmt.Errorf("file name is required")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	size, hash, err := s.blobs.Put(ctx, m.ID, content)
	if err != nil {
		s.count("upload", "failure")
		return err
	}
	m.Size = size
	m.Hash = hash

	if err := s.store.Create(ctx, m); err != nil {
		// Roll the blob back so there is no orphaned content.
		s.blobs.Delete(ctx, m.ID)
		s.count("upload", "failure")
		return err
	}
	s.count("upload", "success")
	return nil
}

// Get retrieves a media record scoped to a tree
func (s *Service) Get(ctx context.Context, treeID, mediaID string) (*Media, error) {
	return s.store.Get(ctx, treeID, mediaID)
}

// Open returns the metadata and a reader over the content
func (s *Service) Open(ctx context.Context, treeID, mediaID string) (*Media, io.ReadCloser, error) {
	m, err := s.store.Get(ctx, treeID, mediaID)
	if err != nil {
		s.count("download", "failure")
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, m.ID)
	if err != nil {
		s.count("download", "failure")
		return nil, nil, err
	}
	s.count("download", "success")
	return m, rc, nil
}

// ListByTree lists a tree's media records
func (s *Service) ListByTree(ctx context.Context, treeID string) ([]Media, error) {
	return s.store.ListByTree(ctx, treeID)
}

// ListByPerson lists media attached to one person
func (s *Service) ListByPerson(ctx context.Context, treeID, personID string) ([]Media, error) {
	return s.store.ListByPerson(ctx, treeID, personID)
}

// Delete removes the metadata row and then the blob. A missing blob after
// the row is gone is not an error; the row is the source of truth.
func (s *Service) Delete(ctx context.Context, treeID, mediaID string) error {
	if err := s.store.Delete(ctx, treeID, mediaID); err != nil {
		s.count("delete", "failure")
		return err
	}
	if err := s.blobs.Delete(ctx, mediaID); err != nil {
		s.count("delete", "failure")
		return fmt.Errorf("media record deleted but blob removal failed: %w", err)
	}
	s.count("delete", "success")
	return nil
}

func (s *Service) count(operation, status string) {
	if s.metrics != nil {
		s.metrics.MediaOperationsTotal.WithLabelValues(operation, status).Inc()
	}
}
