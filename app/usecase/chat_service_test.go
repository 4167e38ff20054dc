package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/internal/domain/entity"
)

func TestChat(t *testing.T) {
	t.Run("text reply", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.chatReply = "An ALB spreads traffic across targets."

		res := f.chat.Chat(context.Background(), "what is an alb?")
		assert.Equal(t, ChatTypeText, res.Type)
		assert.Equal(t, "An ALB spreads traffic across targets.", res.Response)
		assert.NotEmpty(t, res.SupportedNodeTypes)
		assert.Empty(t, res.ImageURL)
	})

	t.Run("json without nodes stays text", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.chatReply = `Here you go: {"answer": 42}`

		res := f.chat.Chat(context.Background(), "tell me a number")
		assert.Equal(t, ChatTypeText, res.Type)
	})

	t.Run("diagram reply", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.chatReply = "Sure!\n```json\n" + `{"name": "Queue", "nodes": [
			{"id": "api", "type": "aws_lambda", "label": "API"},
			{"id": "q", "type": "aws_sqs", "label": "Queue"}
		], "connections": [{"source": "api", "target": "q"}]}` + "\n```"

		res := f.chat.Chat(context.Background(), "create a lambda writing to sqs")
		require.Equal(t, ChatTypeDiagram, res.Type, res.Response)
		assert.Equal(t, "Queue diagram generated successfully", res.Response)
		assert.NotEmpty(t, res.ImageURL)
		require.NotNil(t, res.Specification)
		assert.Len(t, res.Specification.Nodes, 2)

		stored, err := f.diagrams.GetByID(context.Background(), res.DiagramID)
		require.NoError(t, err)
		assert.Equal(t, "Queue", stored.Name)
	})

	t.Run("invalid diagram reply", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.chatReply = `{"name": "Broken", "nodes": [{"id": "a", "type": "aws_ec2", "label": "A"}],
			"connections": [{"source": "a", "target": "ghost"}]}`

		res := f.chat.Chat(context.Background(), "draw it")
		assert.Equal(t, ChatTypeError, res.Type)
		assert.ErrorIs(t, res.Err, entity.ErrInvalidSpecification)
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.chatErr = fmt.Errorf("%w: timeout", entity.ErrUpstreamUnavailable)

		res := f.chat.Chat(context.Background(), "hello")
		assert.Equal(t, ChatTypeError, res.Type)
		assert.ErrorIs(t, res.Err, entity.ErrUpstreamUnavailable)
		assert.Equal(t, "Failed to process message: "+MsgUpstream, res.Response)
		assert.NotContains(t, res.Response, "timeout")
	})

	t.Run("storage failure detail stays internal", func(t *testing.T) {
		f := newFixture(t)
		f.useRepo(&failingSaveRepo{
			DiagramRepository: f.repo,
			err:               errors.New(`pq: password authentication failed for user "admin" at 10.0.3.7:5432`),
		})
		f.gateway.chatReply = `{"name": "Web", "nodes": [{"id": "a", "type": "aws_ec2", "label": "A"}], "connections": []}`

		res := f.chat.Chat(context.Background(), "draw a web server")
		assert.Equal(t, ChatTypeError, res.Type)
		assert.Equal(t, "Failed to process message: "+MsgInternal, res.Response)
		assert.NotContains(t, res.Response, "password")
		assert.NotContains(t, res.Response, "10.0.3.7")
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "password authentication failed")
	})

	t.Run("blank message", func(t *testing.T) {
		f := newFixture(t)
		res := f.chat.Chat(context.Background(), " ")
		assert.Equal(t, ChatTypeError, res.Type)
		assert.ErrorIs(t, res.Err, entity.ErrInvalidInput)
	})
}

func TestConverse(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{name: "reply", reply: "Hi! Want a diagram?", want: "Hi! Want a diagram?"},
		{name: "rate limited", err: errors.New("googleapi: Error 429: Resource exhausted"), want: entity.ConversationBusy},
		{name: "quota", err: errors.New("Quota exceeded for model"), want: entity.ConversationBusy},
		{name: "other error", err: errors.New("connection refused"), want: entity.ConversationFallback},
		{name: "empty reply", reply: "  ", want: entity.ConversationFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gateway.converseReply = tt.reply
			f.gateway.converseErr = tt.err

			assert.Equal(t, tt.want, f.chat.Converse(context.Background(), "hello"))
		})
	}
}
