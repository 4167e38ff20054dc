package entity

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

type Diagram struct {
	ID          DiagramID    `json:"id" bson:"_id"`
	Name        string       `json:"name" bson:"name"`
	Nodes       []Node       `json:"nodes" bson:"nodes"`
	Connections []Connection `json:"connections" bson:"connections"`
	Clusters    []Cluster    `json:"clusters" bson:"clusters"`
	Image       string       `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

type Statistics struct {
	NodeCount       int       `json:"node_count"`
	ConnectionCount int       `json:"connection_count"`
	ClusterCount    int       `json:"cluster_count"`
	IsValid         bool      `json:"is_valid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func NewDiagram(name string, clusters []Cluster) (*Diagram, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: diagram name is required", ErrInvalidSpecification)
	}
	if utf8.RuneCountInString(name) > MaxDiagramNameLength {
		return nil, fmt.Errorf("%w: diagram name exceeds %d characters", ErrInvalidSpecification, MaxDiagramNameLength)
	}

	now := time.Now().UTC()
	return &Diagram{
		ID:          NewDiagramID(),
		Name:        name,
		Nodes:       []Node{},
		Connections: []Connection{},
		Clusters:    cloneClusters(clusters),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (d *Diagram) AddNode(n Node) error {
	if d.NodeByID(n.ID) != nil {
		return fmt.Errorf("%w: duplicate node id %q", ErrInvalidSpecification, n.ID)
	}
	d.Nodes = append(d.Nodes, n)
	d.touch()
	return nil
}

func (d *Diagram) AddConnection(c Connection) error {
	if d.NodeByID(c.Source) == nil {
		return fmt.Errorf("%w: connection source %q is not a declared node", ErrInvalidSpecification, c.Source)
	}
	if d.NodeByID(c.Target) == nil {
		return fmt.Errorf("%w: connection target %q is not a declared node", ErrInvalidSpecification, c.Target)
	}
	for _, existing := range d.Connections {
		if existing.Source == c.Source && existing.Target == c.Target {
			return fmt.Errorf("%w: duplicate connection %q -> %q", ErrInvalidSpecification, c.Source, c.Target)
		}
	}
	d.Connections = append(d.Connections, c)
	d.touch()
	return nil
}

// AttachImage records the published image name for the latest render.
func (d *Diagram) AttachImage(name string) {
	d.Image = name
	d.touch()
}

// IsValid reports whether the diagram has nodes and every connection endpoint exists.
func (d *Diagram) IsValid() bool {
	if len(d.Nodes) == 0 {
		return false
	}
	for _, c := range d.Connections {
		if d.NodeByID(c.Source) == nil || d.NodeByID(c.Target) == nil {
			return false
		}
	}
	return true
}

func (d *Diagram) NodeByID(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

func (d *Diagram) NodesByType(t NodeType) []Node {
	var out []Node
	for _, n := range d.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (d *Diagram) ConnectionsFor(nodeID string) []Connection {
	var out []Connection
	for _, c := range d.Connections {
		if c.Touches(nodeID) {
			out = append(out, c)
		}
	}
	return out
}

func (d *Diagram) NodeCount() int       { return len(d.Nodes) }
func (d *Diagram) ConnectionCount() int { return len(d.Connections) }
func (d *Diagram) ClusterCount() int    { return len(d.Clusters) }

func (d *Diagram) Statistics() Statistics {
	return Statistics{
		NodeCount:       d.NodeCount(),
		ConnectionCount: d.ConnectionCount(),
		ClusterCount:    d.ClusterCount(),
		IsValid:         d.IsValid(),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// Specification returns the diagram in the same shape it was described in.
func (d *Diagram) Specification() Specification {
	spec := Specification{
		Name:        d.Name,
		Nodes:       make([]NodeSpec, 0, len(d.Nodes)),
		Connections: make([]ConnectionSpec, 0, len(d.Connections)),
	}
	for _, n := range d.Nodes {
		spec.Nodes = append(spec.Nodes, NodeSpec{
			ID:      n.ID,
			Type:    string(n.Type),
			Label:   n.Label,
			Cluster: n.Cluster,
		})
	}
	for _, c := range d.Connections {
		spec.Connections = append(spec.Connections, ConnectionSpec{
			Source: c.Source,
			Target: c.Target,
			Label:  c.Label,
		})
	}
	for _, cl := range d.Clusters {
		spec.Clusters = append(spec.Clusters, ClusterSpec{
			Name:  cl.Name,
			Nodes: slices.Clone(cl.Nodes),
		})
	}
	return spec
}

func (d *Diagram) Clone() *Diagram {
	if d == nil {
		return nil
	}
	out := *d
	out.Nodes = slices.Clone(d.Nodes)
	out.Connections = slices.Clone(d.Connections)
	out.Clusters = cloneClusters(d.Clusters)
	return &out
}

func cloneClusters(in []Cluster) []Cluster {
	out := make([]Cluster, len(in))
	for i, cl := range in {
		out[i] = Cluster{Name: cl.Name, Nodes: slices.Clone(cl.Nodes)}
	}
	return out
}

func (d *Diagram) touch() {
	d.UpdatedAt = time.Now().UTC()
}
