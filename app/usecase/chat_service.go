package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/infrastructure/llm"
	"archdiagram/internal/infrastructure/metrics"
)

const (
	ChatTypeText    = "text"
	ChatTypeDiagram = "diagram"
	ChatTypeError   = "error"
)

type ChatResult struct {
	Type               string                `json:"type"`
	Response           string                `json:"response"`
	DiagramID          string                `json:"diagram_id,omitempty"`
	ImageURL           string                `json:"image_url,omitempty"`
	Specification      *entity.Specification `json:"specification,omitempty"`
	SupportedNodeTypes []string              `json:"supported_node_types,omitempty"`

	Err error `json:"-"`
}

type ChatUsecase interface {
	Chat(ctx context.Context, message string) ChatResult
	Converse(ctx context.Context, message string) string
}

var _ ChatUsecase = (*ChatService)(nil)

type ChatService struct {
	diagrams *DiagramService
	logger   *slog.Logger
}

func NewChatService(diagrams *DiagramService, logger *slog.Logger) *ChatService {
	return &ChatService{diagrams: diagrams, logger: logger}
}

// Chat answers an assistant message. A reply that carries a specification is
// built, saved and drawn; anything else is returned as text.
func (s *ChatService) Chat(ctx context.Context, message string) ChatResult {
	message = strings.TrimSpace(message)
	if message == "" {
		return chatError(fmt.Errorf("%w: message is required", entity.ErrInvalidInput))
	}

	types := s.diagrams.catalog.SupportedTypes()

	var res ChatResult
	err := s.diagrams.pool.Execute(ctx, func(ctx context.Context, agent *Agent) error {
		reply, err := agent.LLM.Chat(ctx, message, types)
		if err != nil {
			return fmt.Errorf("assistant chat: %w", err)
		}

		raw, err := llm.ExtractJSON(reply)
		if err != nil || !llm.LooksLikeSpecification(raw) {
			res = ChatResult{Type: ChatTypeText, Response: reply, SupportedNodeTypes: types}
			return nil
		}

		spec, err := llm.DecodeSpecification(raw)
		if err != nil {
			return fmt.Errorf("decode specification: %w", err)
		}
		d, image, err := s.diagrams.materialize(ctx, agent.Renderer, spec)
		if err != nil {
			return err
		}

		metrics.IncDiagramsCreated("chat")
		res = ChatResult{
			Type:          ChatTypeDiagram,
			Response:      fmt.Sprintf("%s diagram generated successfully", d.Name),
			DiagramID:     d.ID.String(),
			ImageURL:      ImageURL(image),
			Specification: &spec,
		}
		return nil
	})
	if err != nil {
		metrics.IncError("chat_service", "chat")
		s.logger.Error("assistant chat failed", "err", err)
		return chatError(err)
	}
	return res
}

func chatError(err error) ChatResult {
	return ChatResult{
		Type:     ChatTypeError,
		Response: "Failed to process message: " + PublicMessage(err),
		Err:      err,
	}
}

// Converse returns a conversational reply and never fails: model errors turn
// into canned help text.
func (s *ChatService) Converse(ctx context.Context, message string) string {
	var reply string
	err := s.diagrams.pool.Execute(ctx, func(ctx context.Context, agent *Agent) error {
		var convErr error
		reply, convErr = agent.LLM.Converse(ctx, message)
		return convErr
	})
	if err == nil && strings.TrimSpace(reply) != "" {
		return reply
	}

	metrics.IncError("chat_service", "converse")
	s.logger.Warn("conversation reply unavailable", "err", err)
	if rateLimited(err) {
		return entity.ConversationBusy
	}
	return entity.ConversationFallback
}

func rateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
