package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

// GraphvizRenderer draws diagrams as PNG files into a shared image directory.
// Each instance tracks the temporary files it creates so Cleanup can remove
// leftovers without touching other renderers' output.
type GraphvizRenderer struct {
	Catalog
	imageDir string
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

var _ repository.Renderer = (*GraphvizRenderer)(nil)

func NewGraphvizRenderer(imageDir string, logger *slog.Logger) *GraphvizRenderer {
	return &GraphvizRenderer{
		Catalog:  NewCatalog(),
		imageDir: imageDir,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}
}

func (r *GraphvizRenderer) Render(ctx context.Context, d *entity.Diagram) (string, error) {
	start := time.Now()

	resolved := make(map[string]component, len(d.Nodes))
	for _, n := range d.Nodes {
		_, comp, ok := r.lookup(string(n.Type))
		if !ok {
			metrics.IncRenderRun("unknown_type")
			return "", &entity.UnknownNodeTypeError{Type: string(n.Type)}
		}
		resolved[n.ID] = comp
	}

	if err := os.MkdirAll(r.imageDir, 0o755); err != nil {
		metrics.IncError("renderer", "mkdir")
		metrics.IncRenderRun("error")
		return "", fmt.Errorf("create image dir: %w", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		metrics.IncError("renderer", "graphviz_init")
		metrics.IncRenderRun("error")
		return "", fmt.Errorf("init graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			r.logger.Warn("close graphviz failed", "err", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		metrics.IncError("renderer", "graph_init")
		metrics.IncRenderRun("error")
		return "", fmt.Errorf("create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			r.logger.Warn("close graph failed", "err", err)
		}
	}()

	if err := r.layout(graph, d, resolved); err != nil {
		metrics.IncError("renderer", "layout")
		metrics.IncRenderRun("error")
		return "", err
	}

	name := uuid.NewString() + ".png"
	final := filepath.Join(r.imageDir, name)
	tmp := filepath.Join(r.imageDir, "."+name+".tmp")
	r.track(tmp)

	if err := gv.RenderFilename(ctx, graph, graphviz.PNG, tmp); err != nil {
		r.discard(tmp)
		metrics.IncError("renderer", "render")
		metrics.IncRenderRun("error")
		return "", fmt.Errorf("render diagram %s: %w", d.ID, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		r.discard(tmp)
		metrics.IncError("renderer", "rename")
		metrics.IncRenderRun("error")
		return "", fmt.Errorf("move rendered image: %w", err)
	}
	r.untrack(tmp)

	abs, err := filepath.Abs(final)
	if err != nil {
		abs = final
	}

	metrics.IncRenderRun("ok")
	metrics.ObserveRenderDuration(time.Since(start))
	r.logger.Info("diagram rendered", "diagram_id", d.ID, "path", abs, "nodes", d.NodeCount(), "took", time.Since(start))
	return abs, nil
}

func (r *GraphvizRenderer) layout(graph *cgraph.Graph, d *entity.Diagram, resolved map[string]component) error {
	graph.SetLabel(d.Name)
	graph.SetRankDir(cgraph.LRRank)

	created := make(map[string]*cgraph.Node, len(d.Nodes))

	for i, cl := range d.Clusters {
		sub, err := graph.CreateSubGraphByName(fmt.Sprintf("cluster_%d", i))
		if err != nil {
			return fmt.Errorf("create cluster %q: %w", cl.Name, err)
		}
		sub.SetLabel(cl.Name)
		for _, id := range cl.Nodes {
			n := d.NodeByID(id)
			if n == nil {
				continue
			}
			if _, done := created[id]; done {
				continue
			}
			gn, err := addNode(sub, *n, resolved[id])
			if err != nil {
				return err
			}
			created[id] = gn
		}
	}

	for _, n := range d.Nodes {
		if _, done := created[n.ID]; done {
			continue
		}
		gn, err := addNode(graph, n, resolved[n.ID])
		if err != nil {
			return err
		}
		created[n.ID] = gn
	}

	skipped := 0
	for i, c := range d.Connections {
		src, okSrc := created[c.Source]
		dst, okDst := created[c.Target]
		if !okSrc || !okDst {
			skipped++
			continue
		}
		e, err := graph.CreateEdgeByName(fmt.Sprintf("e%d", i), src, dst)
		if err != nil {
			return fmt.Errorf("create edge %s -> %s: %w", c.Source, c.Target, err)
		}
		if c.HasLabel() {
			e.SetLabel(c.Label)
		}
	}
	if skipped > 0 {
		metrics.AddSkippedConnections(skipped)
		r.logger.Warn("connections skipped at render time", "diagram_id", d.ID, "skipped", skipped)
	}

	return nil
}

func addNode(g *cgraph.Graph, n entity.Node, comp component) (*cgraph.Node, error) {
	gn, err := g.CreateNodeByName(n.ID)
	if err != nil {
		return nil, fmt.Errorf("create node %q: %w", n.ID, err)
	}
	gn.SetLabel(n.Label)
	gn.SetShape(shapeFor(comp))
	gn.SetStyle(cgraph.FilledNodeStyle)
	gn.SetFillColor(colorFor(comp))
	return gn, nil
}

func (r *GraphvizRenderer) HealthCheck(ctx context.Context) bool {
	if err := os.MkdirAll(r.imageDir, 0o755); err != nil {
		r.logger.Warn("renderer health: image dir unavailable", "dir", r.imageDir, "err", err)
		return false
	}
	probe, err := os.CreateTemp(r.imageDir, ".health-*")
	if err != nil {
		r.logger.Warn("renderer health: image dir not writable", "dir", r.imageDir, "err", err)
		return false
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	gv, err := graphviz.New(ctx)
	if err != nil {
		r.logger.Warn("renderer health: graphviz unavailable", "err", err)
		return false
	}
	_ = gv.Close()
	return true
}

// Cleanup removes temporary files this renderer left behind. The image
// directory itself and finished images are never touched.
func (r *GraphvizRenderer) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path := range r.pending {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("cleanup temp image failed", "path", path, "err", err)
		}
		delete(r.pending, path)
	}
}

func (r *GraphvizRenderer) track(path string) {
	r.mu.Lock()
	r.pending[path] = struct{}{}
	r.mu.Unlock()
}

func (r *GraphvizRenderer) untrack(path string) {
	r.mu.Lock()
	delete(r.pending, path)
	r.mu.Unlock()
}

func (r *GraphvizRenderer) discard(path string) {
	_ = os.Remove(path)
	r.untrack(path)
}
