package repository

import (
	"context"

	"archdiagram/internal/domain/entity"
)

type ComponentCatalog interface {
	Components() []entity.Component
	SupportedTypes() []string
	Describe(nodeType string) string
	Providers() []string
	TypesByProvider(provider string) map[string][]string
}

// Renderer draws a diagram to an image file and returns its absolute path.
type Renderer interface {
	ComponentCatalog
	Render(ctx context.Context, d *entity.Diagram) (string, error)
	HealthCheck(ctx context.Context) bool
	Cleanup()
}
