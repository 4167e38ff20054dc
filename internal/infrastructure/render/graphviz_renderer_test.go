package render

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/service"
)

func newTestRenderer(t *testing.T) (*GraphvizRenderer, string) {
	t.Helper()
	dir := t.TempDir()
	return NewGraphvizRenderer(dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func buildDiagram(t *testing.T, spec entity.Specification) *entity.Diagram {
	t.Helper()
	d, err := service.NewSpecificationBuilder().Build(spec)
	require.NoError(t, err)
	return d
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRenderWritesPNG(t *testing.T) {
	r, dir := newTestRenderer(t)
	d := buildDiagram(t, entity.Specification{
		Name: "Web App",
		Nodes: []entity.NodeSpec{
			{ID: "web", Type: "aws_ec2", Label: "Web"},
			{ID: "db", Type: "aws_rds", Label: "DB", Cluster: "Data"},
			{ID: "lb", Type: "alb", Label: "LB"},
		},
		Connections: []entity.ConnectionSpec{
			{Source: "lb", Target: "web"},
			{Source: "web", Target: "db", Label: "SQL"},
		},
	})

	path, err := r.Render(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, ".png", filepath.Ext(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, absDir, filepath.Dir(path))
	assert.Equal(t, []string{filepath.Base(path)}, listDir(t, dir))
}

func TestRenderUnknownTypeCreatesNothing(t *testing.T) {
	r, dir := newTestRenderer(t)
	d := buildDiagram(t, entity.Specification{
		Name: "Bad",
		Nodes: []entity.NodeSpec{
			{ID: "a", Type: "aws_ec2", Label: "A"},
			{ID: "b", Type: "aws_teleporter", Label: "B"},
		},
	})

	path, err := r.Render(context.Background(), d)
	require.Error(t, err)
	assert.Empty(t, path)

	var unknown *entity.UnknownNodeTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "aws_teleporter", unknown.Type)
	assert.ErrorIs(t, err, entity.ErrUnknownNodeType)
	assert.Empty(t, listDir(t, dir))
}

func TestRenderSkipsDanglingConnections(t *testing.T) {
	r, _ := newTestRenderer(t)
	d := buildDiagram(t, entity.Specification{
		Name:  "Lonely",
		Nodes: []entity.NodeSpec{{ID: "a", Type: "aws_s3", Label: "A"}},
	})
	d.Connections = append(d.Connections, entity.Connection{Source: "a", Target: "ghost"})

	path, err := r.Render(context.Background(), d)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestRenderNamesAreUnique(t *testing.T) {
	r, dir := newTestRenderer(t)
	d := buildDiagram(t, entity.Specification{
		Name:  "Same",
		Nodes: []entity.NodeSpec{{ID: "a", Type: "gcp_compute_engine", Label: "A"}},
	})

	first, err := r.Render(context.Background(), d)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), d)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, listDir(t, dir), 2)
}

func TestCleanupKeepsFinishedImages(t *testing.T) {
	r, dir := newTestRenderer(t)
	d := buildDiagram(t, entity.Specification{
		Name:  "Keep",
		Nodes: []entity.NodeSpec{{ID: "a", Type: "azure_vm", Label: "A"}},
	})
	path, err := r.Render(context.Background(), d)
	require.NoError(t, err)

	stray := filepath.Join(dir, ".stray.png.tmp")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))
	r.track(stray)

	r.Cleanup()

	assert.FileExists(t, path)
	assert.NoFileExists(t, stray)
	assert.DirExists(t, dir)
}

func TestRendererHealthCheck(t *testing.T) {
	r, dir := newTestRenderer(t)
	assert.True(t, r.HealthCheck(context.Background()))
	assert.Empty(t, listDir(t, dir))
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()

	types := c.SupportedTypes()
	for _, want := range []string{"aws_ec2", "aws_rds", "aws_alb", "gcp_compute_engine", "azure_vm"} {
		assert.Contains(t, types, want)
	}
	for _, typ := range types {
		assert.True(t, strings.Contains(typ, "_"), typ)
	}

	assert.True(t, c.Supports("EC2"))
	assert.True(t, c.Supports("virtual_machines"))
	assert.False(t, c.Supports("aws_teleporter"))

	assert.Equal(t, "unknown", c.Describe("aws_teleporter"))
	assert.Equal(t, c.Describe("aws_rds"), c.Describe("rds"))

	assert.Equal(t, []string{"aws", "azure", "gcp"}, c.Providers())

	aws := c.TypesByProvider("aws")
	assert.Contains(t, aws["database"], "aws_rds")
	assert.Contains(t, aws["integration"], "aws_sqs")
	assert.Empty(t, c.TypesByProvider("oracle"))

	assert.Len(t, c.Components(), len(types))
}
