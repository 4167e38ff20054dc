package cache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

// DiagramRepo is a read-through LRU cache in front of another repository.
// Deletes hold mu exclusively so no in-flight read can re-cache a record
// after it is gone.
type DiagramRepo struct {
	next  repository.DiagramRepository
	cache *lru.Cache[entity.DiagramID, *entity.Diagram]
	mu    sync.RWMutex
}

var _ repository.DiagramRepository = (*DiagramRepo)(nil)

func NewDiagramRepo(next repository.DiagramRepository, size int) (*DiagramRepo, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[entity.DiagramID, *entity.Diagram](size)
	if err != nil {
		return nil, fmt.Errorf("create diagram cache: %w", err)
	}
	return &DiagramRepo{next: next, cache: c}, nil
}

func (r *DiagramRepo) Save(ctx context.Context, d *entity.Diagram) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.next.Save(ctx, d); err != nil {
		r.cache.Remove(d.ID)
		return err
	}
	r.cache.Add(d.ID, d.Clone())
	return nil
}

func (r *DiagramRepo) FindByID(ctx context.Context, id entity.DiagramID) (*entity.Diagram, error) {
	if d, ok := r.cache.Get(id); ok {
		metrics.IncCacheLookup("hit")
		return d.Clone(), nil
	}
	metrics.IncCacheLookup("miss")

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, d.Clone())
	return d, nil
}

func (r *DiagramRepo) FindByName(ctx context.Context, name string) (*entity.Diagram, error) {
	return r.next.FindByName(ctx, name)
}

func (r *DiagramRepo) FindAll(ctx context.Context) ([]*entity.Diagram, error) {
	return r.next.FindAll(ctx)
}

func (r *DiagramRepo) Delete(ctx context.Context, id entity.DiagramID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Remove(id)
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.Remove(id)
	return nil
}

func (r *DiagramRepo) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *DiagramRepo) Len() int {
	return r.cache.Len()
}
