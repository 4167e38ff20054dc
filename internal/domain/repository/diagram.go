package repository

import (
	"context"

	"archdiagram/internal/domain/entity"
)

// DiagramRepository stores diagrams. Lookups of missing ids return entity.ErrNotFound.
type DiagramRepository interface {
	Save(ctx context.Context, d *entity.Diagram) error
	FindByID(ctx context.Context, id entity.DiagramID) (*entity.Diagram, error)
	FindByName(ctx context.Context, name string) (*entity.Diagram, error)
	FindAll(ctx context.Context) ([]*entity.Diagram, error)
	Delete(ctx context.Context, id entity.DiagramID) error
	Ping(ctx context.Context) error
}
