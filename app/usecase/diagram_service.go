package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/domain/service"
	"archdiagram/internal/infrastructure/codec/hclspec"
	"archdiagram/internal/infrastructure/metrics"
)

const (
	ImageURLPrefix = "/api/v1/images/"

	DefaultPageSize = 50
	MaxPageSize     = 200
)

type DiagramUsecase interface {
	GenerateFromDescription(ctx context.Context, description string) GenerateResult
	CreateFromSpecification(ctx context.Context, spec entity.Specification) (CreateResult, error)
	GetByID(ctx context.Context, id string) (DiagramDetails, error)
	GetByName(ctx context.Context, name string) (DiagramDetails, error)
	GetAll(ctx context.Context, limit, offset int) (DiagramPage, error)
	Delete(ctx context.Context, id string) error
	RenderExisting(ctx context.Context, id string) (RenderResult, error)
	ExportHCL(ctx context.Context, id string) ([]byte, error)
	ImportHCL(ctx context.Context, src []byte) (CreateResult, error)
	SupportedComponents() ComponentsResult
	ListImages(ctx context.Context) ([]string, error)
	OpenImage(ctx context.Context, name string) (io.ReadCloser, int64, error)
}

var _ DiagramUsecase = (*DiagramService)(nil)

type GenerateResult struct {
	Success       bool                  `json:"success"`
	DiagramID     string                `json:"diagram_id,omitempty"`
	Image         string                `json:"image,omitempty"`
	ImageURL      string                `json:"image_url"`
	Specification *entity.Specification `json:"specification,omitempty"`
	Message       string                `json:"message"`
	Error         string                `json:"error,omitempty"`

	Err error `json:"-"`
}

type CreateResult struct {
	DiagramID string `json:"diagram_id"`
	Name      string `json:"name"`
	entity.Statistics
}

type DiagramDetails struct {
	*entity.Diagram
	ImageURL   string            `json:"image_url,omitempty"`
	Statistics entity.Statistics `json:"statistics"`
}

type DiagramPage struct {
	Diagrams []DiagramDetails `json:"diagrams"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type RenderResult struct {
	DiagramID string `json:"diagram_id"`
	Image     string `json:"image"`
	ImageURL  string `json:"image_url"`
}

type ComponentsResult struct {
	SupportedComponents []entity.Component             `json:"supported_components"`
	Providers           map[string]map[string][]string `json:"providers"`
	TotalCount          int                            `json:"total_count"`
}

type DiagramService struct {
	repo    repository.DiagramRepository
	images  repository.ImageStore
	catalog repository.ComponentCatalog
	pool    *AgentPool
	builder *service.SpecificationBuilder
	logger  *slog.Logger
}

func NewDiagramService(
	repo repository.DiagramRepository,
	images repository.ImageStore,
	catalog repository.ComponentCatalog,
	pool *AgentPool,
	logger *slog.Logger,
) *DiagramService {
	return &DiagramService{
		repo:    repo,
		images:  images,
		catalog: catalog,
		pool:    pool,
		builder: service.NewSpecificationBuilder(),
		logger:  logger,
	}
}

func ImageURL(name string) string {
	if name == "" {
		return ""
	}
	return ImageURLPrefix + name
}

// GenerateFromDescription runs the full pipeline. A diagram that was built and
// saved is reported as a success even when rendering or publishing fails; the
// result then carries no image.
func (s *DiagramService) GenerateFromDescription(ctx context.Context, description string) GenerateResult {
	description = strings.TrimSpace(description)
	if description == "" {
		return failedGeneration(fmt.Errorf("%w: description is required", entity.ErrInvalidInput))
	}

	start := time.Now()
	s.logger.Info("generating diagram", "description_len", len(description))

	var res GenerateResult
	err := s.pool.Execute(ctx, func(ctx context.Context, agent *Agent) error {
		spec, err := agent.LLM.GenerateSpecification(ctx, description, s.catalog.SupportedTypes())
		if err != nil {
			return fmt.Errorf("generate specification: %w", err)
		}
		d, image, err := s.materialize(ctx, agent.Renderer, spec)
		if err != nil {
			return err
		}
		res = GenerateResult{
			Success:       true,
			DiagramID:     d.ID.String(),
			Image:         image,
			ImageURL:      ImageURL(image),
			Specification: &spec,
			Message:       fmt.Sprintf("%s diagram generated successfully", d.Name),
		}
		return nil
	})
	if err != nil {
		metrics.IncError("diagram_service", "generate")
		s.logger.Error("diagram generation failed", "err", err)
		return failedGeneration(err)
	}

	metrics.IncDiagramsCreated("description")
	metrics.ObserveGenerationDuration(time.Since(start))
	s.logger.Info("diagram generated", "diagram_id", res.DiagramID, "image", res.Image, "duration", time.Since(start))
	return res
}

func failedGeneration(err error) GenerateResult {
	return GenerateResult{
		Success: false,
		Message: "failed to generate diagram",
		Error:   PublicMessage(err),
		Err:     err,
	}
}

// materialize builds, saves and draws a specification. Rendering problems are
// logged and leave the returned image name empty.
func (s *DiagramService) materialize(ctx context.Context, renderer repository.Renderer, spec entity.Specification) (*entity.Diagram, string, error) {
	d, err := s.builder.Build(spec)
	if err != nil {
		return nil, "", fmt.Errorf("build diagram: %w", err)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, "", fmt.Errorf("save diagram: %w", err)
	}

	image, err := s.renderAndPublish(ctx, renderer, d)
	if err != nil {
		metrics.IncError("diagram_service", "render_degraded")
		s.logger.Warn("continuing without image", "diagram_id", d.ID, "err", err)
		return d, "", nil
	}
	return d, image, nil
}

// renderAndPublish draws d, hands the file to the image store and records
// the published name on the stored diagram.
func (s *DiagramService) renderAndPublish(ctx context.Context, renderer repository.Renderer, d *entity.Diagram) (string, error) {
	path, err := renderer.Render(ctx, d)
	if err != nil {
		return "", fmt.Errorf("render diagram: %w", err)
	}
	name, err := s.images.Publish(ctx, path)
	if err != nil {
		return "", fmt.Errorf("publish image: %w", err)
	}

	previous := d.Image
	d.AttachImage(name)
	if err := s.repo.Save(ctx, d); err != nil {
		return "", fmt.Errorf("save diagram image: %w", err)
	}
	if previous != "" && previous != name {
		if err := s.images.Delete(ctx, previous); err != nil && !errors.Is(err, entity.ErrNotFound) {
			s.logger.Warn("failed to delete previous image", "diagram_id", d.ID, "image", previous, "err", err)
		}
	}
	return name, nil
}

func (s *DiagramService) CreateFromSpecification(ctx context.Context, spec entity.Specification) (CreateResult, error) {
	return s.create(ctx, spec, "specification")
}

// create persists spec without drawing it. source labels the created-diagrams metric.
func (s *DiagramService) create(ctx context.Context, spec entity.Specification, source string) (CreateResult, error) {
	d, err := s.builder.Build(spec)
	if err != nil {
		metrics.IncError("diagram_service", "build")
		return CreateResult{}, fmt.Errorf("build diagram: %w", err)
	}
	if err := s.repo.Save(ctx, d); err != nil {
		metrics.IncError("diagram_service", "save")
		return CreateResult{}, fmt.Errorf("save diagram: %w", err)
	}

	metrics.IncDiagramsCreated(source)
	s.logger.Info("diagram created", "diagram_id", d.ID, "source", source, "nodes", d.NodeCount(), "connections", d.ConnectionCount())
	return CreateResult{
		DiagramID:  d.ID.String(),
		Name:       d.Name,
		Statistics: d.Statistics(),
	}, nil
}

func (s *DiagramService) GetByID(ctx context.Context, id string) (DiagramDetails, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return DiagramDetails{}, err
	}
	return details(d), nil
}

func (s *DiagramService) GetByName(ctx context.Context, name string) (DiagramDetails, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DiagramDetails{}, fmt.Errorf("%w: name is required", entity.ErrInvalidInput)
	}
	d, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return DiagramDetails{}, fmt.Errorf("find diagram by name: %w", err)
	}
	return details(d), nil
}

func (s *DiagramService) GetAll(ctx context.Context, limit, offset int) (DiagramPage, error) {
	if limit < 0 || offset < 0 {
		return DiagramPage{}, fmt.Errorf("%w: limit and offset must not be negative", entity.ErrInvalidInput)
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return DiagramPage{}, fmt.Errorf("list diagrams: %w", err)
	}

	page := DiagramPage{Diagrams: []DiagramDetails{}, Total: len(all), Limit: limit, Offset: offset}
	if offset >= len(all) {
		return page, nil
	}
	for _, d := range all[offset:min(offset+limit, len(all))] {
		page.Diagrams = append(page.Diagrams, details(d))
	}
	return page, nil
}

// Delete removes the diagram and, best effort, its published image.
func (s *DiagramService) Delete(ctx context.Context, id string) error {
	d, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, d.ID); err != nil {
		metrics.IncError("diagram_service", "delete")
		return fmt.Errorf("delete diagram: %w", err)
	}
	if d.Image != "" {
		if err := s.images.Delete(ctx, d.Image); err != nil && !errors.Is(err, entity.ErrNotFound) {
			s.logger.Warn("failed to delete image", "diagram_id", d.ID, "image", d.Image, "err", err)
		}
	}
	s.logger.Info("diagram deleted", "diagram_id", d.ID)
	return nil
}

func (s *DiagramService) RenderExisting(ctx context.Context, id string) (RenderResult, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return RenderResult{}, err
	}

	var image string
	err = s.pool.Execute(ctx, func(ctx context.Context, agent *Agent) error {
		var renderErr error
		image, renderErr = s.renderAndPublish(ctx, agent.Renderer, d)
		return renderErr
	})
	if err != nil {
		metrics.IncError("diagram_service", "render")
		return RenderResult{}, err
	}

	return RenderResult{DiagramID: d.ID.String(), Image: image, ImageURL: ImageURL(image)}, nil
}

func (s *DiagramService) ExportHCL(ctx context.Context, id string) ([]byte, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return hclspec.Encode(d), nil
}

func (s *DiagramService) ImportHCL(ctx context.Context, src []byte) (CreateResult, error) {
	spec, err := hclspec.Decode(src, "import.hcl")
	if err != nil {
		metrics.IncError("diagram_service", "hcl_decode")
		return CreateResult{}, fmt.Errorf("decode hcl: %w", err)
	}
	return s.create(ctx, spec, "hcl")
}

func (s *DiagramService) SupportedComponents() ComponentsResult {
	comps := s.catalog.Components()
	providers := make(map[string]map[string][]string)
	for _, p := range s.catalog.Providers() {
		providers[p] = s.catalog.TypesByProvider(p)
	}
	return ComponentsResult{
		SupportedComponents: comps,
		Providers:           providers,
		TotalCount:          len(comps),
	}
}

func (s *DiagramService) ListImages(ctx context.Context) ([]string, error) {
	names, err := s.images.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return names, nil
}

func (s *DiagramService) OpenImage(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	return s.images.Open(ctx, name)
}

func (s *DiagramService) find(ctx context.Context, raw string) (*entity.Diagram, error) {
	id, err := entity.ParseDiagramID(raw)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find diagram %s: %w", id, err)
	}
	return d, nil
}

func details(d *entity.Diagram) DiagramDetails {
	return DiagramDetails{
		Diagram:    d,
		ImageURL:   ImageURL(d.Image),
		Statistics: d.Statistics(),
	}
}
