package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

// Agent is the per-request unit of work: a model gateway plus a renderer
// whose temporary files belong to this request alone.
type Agent struct {
	LLM      repository.LLMGateway
	Renderer repository.Renderer
}

type AgentFactory func() (*Agent, error)

var ErrPoolSaturated = errors.New("agent pool saturated")

type AgentPool struct {
	sem     *semaphore.Weighted
	size    int
	factory AgentFactory
	logger  *slog.Logger
}

func NewAgentPool(size int, factory AgentFactory, logger *slog.Logger) *AgentPool {
	if size <= 0 {
		size = 1
	}
	return &AgentPool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		factory: factory,
		logger:  logger,
	}
}

func (p *AgentPool) Size() int {
	return p.size
}

// Execute runs fn with a fresh agent once a slot is free. The agent's
// renderer is cleaned up whatever fn returns.
func (p *AgentPool) Execute(ctx context.Context, fn func(ctx context.Context, agent *Agent) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		metrics.IncError("agent_pool", "acquire")
		return fmt.Errorf("acquire agent: %w", err)
	}
	return p.run(ctx, fn)
}

// TryExecute is Execute with the wait for a free slot capped at wait. It
// returns ErrPoolSaturated when every slot stays busy for that long.
func (p *AgentPool) TryExecute(ctx context.Context, wait time.Duration, fn func(ctx context.Context, agent *Agent) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.IncError("agent_pool", "acquire")
			return fmt.Errorf("acquire agent: %w", ctxErr)
		}
		metrics.IncError("agent_pool", "saturated")
		return ErrPoolSaturated
	}
	return p.run(ctx, fn)
}

func (p *AgentPool) run(ctx context.Context, fn func(ctx context.Context, agent *Agent) error) error {
	defer p.sem.Release(1)

	metrics.IncAgentsInFlight()
	defer metrics.DecAgentsInFlight()

	agent, err := p.factory()
	if err != nil {
		metrics.IncError("agent_pool", "create_agent")
		return fmt.Errorf("create agent: %w", err)
	}
	defer func() {
		agent.Renderer.Cleanup()
		p.logger.Debug("agent released")
	}()

	return fn(ctx, agent)
}
