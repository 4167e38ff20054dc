package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

// DiagramRepo keeps diagrams in process memory in insertion order.
type DiagramRepo struct {
	mu       sync.RWMutex
	diagrams map[entity.DiagramID]*entity.Diagram
	order    []entity.DiagramID
}

func NewDiagramRepo() repository.DiagramRepository {
	return &DiagramRepo{
		diagrams: make(map[entity.DiagramID]*entity.Diagram),
	}
}

func (r *DiagramRepo) Save(_ context.Context, d *entity.Diagram) error {
	metrics.IncRepositoryOp("memory", "save")

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.diagrams[d.ID]; !exists {
		r.order = append(r.order, d.ID)
	}
	r.diagrams[d.ID] = d.Clone()
	return nil
}

func (r *DiagramRepo) FindByID(_ context.Context, id entity.DiagramID) (*entity.Diagram, error) {
	metrics.IncRepositoryOp("memory", "get")

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.diagrams[id]
	if !ok {
		return nil, fmt.Errorf("diagram %s: %w", id, entity.ErrNotFound)
	}
	return d.Clone(), nil
}

func (r *DiagramRepo) FindByName(_ context.Context, name string) (*entity.Diagram, error) {
	metrics.IncRepositoryOp("memory", "get")

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if d := r.diagrams[id]; d.Name == name {
			return d.Clone(), nil
		}
	}
	return nil, fmt.Errorf("diagram named %q: %w", name, entity.ErrNotFound)
}

func (r *DiagramRepo) FindAll(_ context.Context) ([]*entity.Diagram, error) {
	metrics.IncRepositoryOp("memory", "list")

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Diagram, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.diagrams[id].Clone())
	}
	return out, nil
}

func (r *DiagramRepo) Delete(_ context.Context, id entity.DiagramID) error {
	metrics.IncRepositoryOp("memory", "delete")

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.diagrams[id]; !ok {
		return fmt.Errorf("diagram %s: %w", id, entity.ErrNotFound)
	}
	delete(r.diagrams, id)
	r.order = slices.DeleteFunc(r.order, func(v entity.DiagramID) bool { return v == id })
	return nil
}

func (r *DiagramRepo) Ping(context.Context) error {
	return nil
}
