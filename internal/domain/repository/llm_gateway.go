package repository

import (
	"context"

	"archdiagram/internal/domain/entity"
)

type LLMGateway interface {
	// GenerateSpecification asks the model for a diagram specification.
	GenerateSpecification(ctx context.Context, description string, supportedTypes []string) (entity.Specification, error)
	// Chat returns the raw assistant reply, which may contain a specification.
	Chat(ctx context.Context, message string, supportedTypes []string) (string, error)
	Converse(ctx context.Context, message string) (string, error)
	HealthCheck(ctx context.Context) bool
}
