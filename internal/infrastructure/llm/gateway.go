package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/intent"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/domain/service"
	"archdiagram/internal/infrastructure/metrics"
)

// Completer is a black-box text completion backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

type Gateway struct {
	completer Completer
	builder   *service.SpecificationBuilder
	logger    *slog.Logger
}

var _ repository.LLMGateway = (*Gateway)(nil)

func NewGateway(completer Completer, logger *slog.Logger) *Gateway {
	return &Gateway{
		completer: completer,
		builder:   service.NewSpecificationBuilder(),
		logger:    logger,
	}
}

func (g *Gateway) GenerateSpecification(ctx context.Context, description string, supportedTypes []string) (entity.Specification, error) {
	reply, err := g.complete(ctx, entity.GenerationPrompt(description, supportedTypes))
	if err != nil {
		return entity.Specification{}, err
	}

	raw, err := ExtractJSON(reply)
	if err != nil {
		metrics.IncError("llm", "extract_json")
		g.logger.Warn("model reply without usable json", "model", g.completer.Name(), "reply_len", len(reply))
		return entity.Specification{}, err
	}

	spec, err := DecodeSpecification(raw)
	if err != nil {
		metrics.IncError("llm", "decode_specification")
		return entity.Specification{}, err
	}

	if err := g.builder.Validate(spec); err != nil {
		metrics.IncError("llm", "invalid_specification")
		return entity.Specification{}, err
	}

	return spec, nil
}

func (g *Gateway) Chat(ctx context.Context, message string, supportedTypes []string) (string, error) {
	prompt := entity.AssistantPrompt(message, supportedTypes)
	if intent.HasGenerationKeyword(message) {
		prompt = entity.GenerationPrompt(message, supportedTypes)
	}
	return g.complete(ctx, prompt)
}

func (g *Gateway) Converse(ctx context.Context, message string) (string, error) {
	return g.complete(ctx, entity.ConversationPrompt(message))
}

func (g *Gateway) HealthCheck(ctx context.Context) bool {
	reply, err := g.completer.Complete(ctx, entity.HealthPrompt().Text)
	if err != nil {
		g.logger.Warn("llm health check failed", "model", g.completer.Name(), "err", err)
		return false
	}
	return strings.Contains(reply, "OK")
}

func (g *Gateway) complete(ctx context.Context, prompt entity.Prompt) (string, error) {
	reply, err := g.completer.Complete(ctx, prompt.Text)
	if err != nil {
		g.logger.Error("llm completion failed", "model", g.completer.Name(), "prompt", prompt.ID, "err", err)
		return "", fmt.Errorf("%w: %w", entity.ErrUpstreamUnavailable, err)
	}
	g.logger.Debug("llm completion", "model", g.completer.Name(), "prompt", prompt.ID, "reply_len", len(reply))
	return reply, nil
}
