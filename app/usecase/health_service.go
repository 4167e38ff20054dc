package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"archdiagram/internal/domain/repository"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	ComponentLLM        = "llm_client"
	ComponentRenderer   = "renderer"
	ComponentRepository = "repository"
	ComponentAgentPool  = "agent_pool"
)

type HealthReport struct {
	Status             string          `json:"status"`
	Components         map[string]bool `json:"components"`
	SupportedNodeTypes []string        `json:"supported_node_types"`
	Timestamp          time.Time       `json:"ts"`
}

type HealthUsecase interface {
	Check(ctx context.Context) HealthReport
}

var _ HealthUsecase = (*HealthService)(nil)

type HealthService struct {
	pool     *AgentPool
	repo     repository.DiagramRepository
	catalog  repository.ComponentCatalog
	timeout  time.Duration
	slotWait time.Duration
	logger   *slog.Logger
}

func NewHealthService(pool *AgentPool, repo repository.DiagramRepository, catalog repository.ComponentCatalog, logger *slog.Logger) *HealthService {
	return &HealthService{
		pool:     pool,
		repo:     repo,
		catalog:  catalog,
		timeout:  10 * time.Second,
		slotWait: 2 * time.Second,
		logger:   logger,
	}
}

// Check probes every component concurrently. Individual failures only lower
// the overall status. When every agent is busy the model and renderer are not
// probed and the report is at most degraded.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var llmOK, rendererOK, repoOK bool
	var poolErr error

	var g errgroup.Group
	g.Go(func() error {
		err := s.repo.Ping(ctx)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			s.logger.Warn("repository health check failed", "err", err)
			return nil
		}
		repoOK = true
		return nil
	})
	g.Go(func() error {
		poolErr = s.pool.TryExecute(ctx, s.slotWait, func(ctx context.Context, agent *Agent) error {
			ag, actx := errgroup.WithContext(ctx)
			ag.Go(func() error {
				llmOK = agent.LLM.HealthCheck(actx)
				return nil
			})
			ag.Go(func() error {
				rendererOK = agent.Renderer.HealthCheck(actx)
				return nil
			})
			return ag.Wait()
		})
		return nil
	})
	_ = g.Wait()

	report := HealthReport{
		SupportedNodeTypes: s.catalog.SupportedTypes(),
		Timestamp:          time.Now().UTC(),
	}

	if errors.Is(poolErr, ErrPoolSaturated) {
		s.logger.Warn("health check skipped agent probes", "reason", "agent pool saturated", "pool_size", s.pool.Size())
		report.Components = map[string]bool{
			ComponentAgentPool:  false,
			ComponentRepository: repoOK,
		}
		report.Status = StatusDegraded
		if !repoOK {
			report.Status = StatusUnhealthy
		}
		return report
	}
	if poolErr != nil {
		s.logger.Error("health check failed", "err", poolErr)
	}

	probed := map[string]bool{
		ComponentLLM:        llmOK,
		ComponentRenderer:   rendererOK,
		ComponentRepository: repoOK,
	}
	report.Status = overallStatus(probed)
	probed[ComponentAgentPool] = poolErr == nil
	report.Components = probed
	return report
}

func overallStatus(components map[string]bool) string {
	up := 0
	for _, ok := range components {
		if ok {
			up++
		}
	}
	switch up {
	case len(components):
		return StatusHealthy
	case 0:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}
