package db

import (
	"context"
	"sync"

	"github.com/techcodes/backend/internal/models"
)

// MemoryStore keeps the working set in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	batch *models.Batch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) ReplaceBatch(ctx context.Context, b models.Batch) error {
	cp := cloneBatch(b)
	s.mu.Lock()
	s.batch = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) CurrentBatch(ctx context.Context) (models.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch == nil {
		return models.Batch{}, ErrNoBatch
	}
	return cloneBatch(*s.batch), nil
}

func (s *MemoryStore) SetSent(ctx context.Context, row int, sent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return ErrNoBatch
	}
	idx := s.batch.FindRow(row)
	if idx < 0 {
		return ErrNotFound
	}
	s.batch.Records[idx].Sent = sent
	return nil
}

func cloneBatch(b models.Batch) models.Batch {
	cp := b
	cp.Records = append([]models.Record(nil), b.Records...)
	return cp
}
