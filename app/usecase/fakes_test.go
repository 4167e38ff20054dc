package usecase

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/render"
	"archdiagram/internal/infrastructure/store/filesystem"
	"archdiagram/internal/infrastructure/store/memory"
)

type fakeGateway struct {
	spec    entity.Specification
	specErr error

	chatReply string
	chatErr   error

	converseReply string
	converseErr   error

	healthy bool
}

func (f *fakeGateway) GenerateSpecification(context.Context, string, []string) (entity.Specification, error) {
	return f.spec, f.specErr
}

func (f *fakeGateway) Chat(context.Context, string, []string) (string, error) {
	return f.chatReply, f.chatErr
}

func (f *fakeGateway) Converse(context.Context, string) (string, error) {
	return f.converseReply, f.converseErr
}

func (f *fakeGateway) HealthCheck(context.Context) bool {
	return f.healthy
}

// fakeRenderer writes a placeholder PNG into dir instead of running graphviz.
type fakeRenderer struct {
	render.Catalog
	dir     string
	err     error
	healthy bool

	renders  atomic.Int32
	cleanups atomic.Int32
}

func (f *fakeRenderer) Render(_ context.Context, d *entity.Diagram) (string, error) {
	f.renders.Add(1)
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, []byte("png:"+d.Name), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeRenderer) HealthCheck(context.Context) bool { return f.healthy }

func (f *fakeRenderer) Cleanup() { f.cleanups.Add(1) }

var _ repository.Renderer = (*fakeRenderer)(nil)

type fixture struct {
	gateway  *fakeGateway
	renderer *fakeRenderer
	repo     repository.DiagramRepository
	images   *filesystem.ImageStore
	pool     *AgentPool
	diagrams *DiagramService
	chat     *ChatService
	health   *HealthService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	images, err := filesystem.NewImageStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		gateway:  &fakeGateway{healthy: true},
		renderer: &fakeRenderer{Catalog: render.NewCatalog(), dir: t.TempDir(), healthy: true},
		repo:     memory.NewDiagramRepo(),
		images:   images,
	}
	f.pool = NewAgentPool(2, func() (*Agent, error) {
		return &Agent{LLM: f.gateway, Renderer: f.renderer}, nil
	}, discardLogger())
	f.useRepo(f.repo)
	return f
}

// useRepo rebuilds the services on top of repo.
func (f *fixture) useRepo(repo repository.DiagramRepository) {
	f.repo = repo
	f.diagrams = NewDiagramService(repo, f.images, f.renderer.Catalog, f.pool, discardLogger())
	f.chat = NewChatService(f.diagrams, discardLogger())
	f.health = NewHealthService(f.pool, repo, f.renderer.Catalog, discardLogger())
}

func webAppSpec() entity.Specification {
	return entity.Specification{
		Name: "Web App",
		Nodes: []entity.NodeSpec{
			{ID: "lb", Type: "aws_alb", Label: "LB"},
			{ID: "web", Type: "aws_ec2", Label: "Web"},
			{ID: "db", Type: "aws_rds", Label: "DB"},
		},
		Connections: []entity.ConnectionSpec{
			{Source: "lb", Target: "web"},
			{Source: "web", Target: "db", Label: "SQL"},
		},
		Clusters: []entity.ClusterSpec{{Name: "Data", Nodes: []string{"db"}}},
	}
}

// pingRepo overrides Ping on top of a working repository.
type pingRepo struct {
	repository.DiagramRepository
	err error
}

func (r *pingRepo) Ping(context.Context) error {
	return r.err
}

type failingSaveRepo struct {
	repository.DiagramRepository
	err error
}

func (r *failingSaveRepo) Save(context.Context, *entity.Diagram) error {
	return r.err
}
