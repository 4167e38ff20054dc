package service

import (
	"fmt"
	"strings"

	"archdiagram/internal/domain/entity"
)

// SpecificationBuilder turns a raw specification into a validated Diagram.
type SpecificationBuilder struct{}

func NewSpecificationBuilder() *SpecificationBuilder {
	return &SpecificationBuilder{}
}

// Validate checks the structural rules that do not need entity construction:
// at least one node, unique node ids and connections between declared nodes.
func (b *SpecificationBuilder) Validate(spec entity.Specification) error {
	if len(spec.Nodes) == 0 {
		return fmt.Errorf("%w: diagram must contain at least one node", entity.ErrInvalidSpecification)
	}

	ids := make(map[string]struct{}, len(spec.Nodes))
	for _, n := range spec.Nodes {
		id := strings.TrimSpace(n.ID)
		if _, ok := ids[id]; ok {
			return fmt.Errorf("%w: duplicate node id %q", entity.ErrInvalidSpecification, id)
		}
		ids[id] = struct{}{}
	}

	for i, c := range spec.Connections {
		src := strings.TrimSpace(c.Source)
		tgt := strings.TrimSpace(c.Target)
		if _, ok := ids[src]; !ok {
			return fmt.Errorf("%w: connection %d: source %q is not a declared node", entity.ErrInvalidSpecification, i, src)
		}
		if _, ok := ids[tgt]; !ok {
			return fmt.Errorf("%w: connection %d: target %q is not a declared node", entity.ErrInvalidSpecification, i, tgt)
		}
	}

	return nil
}

func (b *SpecificationBuilder) Build(spec entity.Specification) (*entity.Diagram, error) {
	if err := b.Validate(spec); err != nil {
		return nil, err
	}

	nodes := make([]entity.Node, 0, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		n, err := entity.NewNode(ns.ID, ns.Type, ns.Label, ns.Cluster)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	connections := make([]entity.Connection, 0, len(spec.Connections))
	for _, cs := range spec.Connections {
		c, err := entity.NewConnection(cs.Source, cs.Target, cs.Label)
		if err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}

	clusters, err := resolveClusters(spec.Clusters, nodes)
	if err != nil {
		return nil, err
	}

	d, err := entity.NewDiagram(spec.Name, clusters)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if err := d.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, c := range connections {
		if err := d.AddConnection(c); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// resolveClusters merges explicit cluster declarations with per-node cluster
// fields. A node may belong to at most one cluster; a node-level cluster name
// that was never declared creates that cluster. Node cluster fields are
// rewritten so both views agree.
func resolveClusters(specs []entity.ClusterSpec, nodes []entity.Node) ([]entity.Cluster, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	var clusters []entity.Cluster
	byName := make(map[string]int)
	membership := make(map[string]string)

	declare := func(name string) int {
		if i, ok := byName[name]; ok {
			return i
		}
		clusters = append(clusters, entity.Cluster{Name: name, Nodes: []string{}})
		byName[name] = len(clusters) - 1
		return len(clusters) - 1
	}

	assign := func(clusterName, nodeID string) error {
		if current, ok := membership[nodeID]; ok {
			if current != clusterName {
				return fmt.Errorf("%w: node %q is assigned to clusters %q and %q", entity.ErrInvalidSpecification, nodeID, current, clusterName)
			}
			return nil
		}
		membership[nodeID] = clusterName
		ci := byName[clusterName]
		clusters[ci].Nodes = append(clusters[ci].Nodes, nodeID)
		return nil
	}

	for _, cs := range specs {
		name := strings.TrimSpace(cs.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: cluster name is empty", entity.ErrInvalidSpecification)
		}
		declare(name)
		for _, raw := range cs.Nodes {
			id := strings.TrimSpace(raw)
			if _, ok := index[id]; !ok {
				return nil, fmt.Errorf("%w: cluster %q references unknown node %q", entity.ErrInvalidSpecification, name, id)
			}
			if err := assign(name, id); err != nil {
				return nil, err
			}
		}
	}

	for _, n := range nodes {
		if !n.InCluster() {
			continue
		}
		declare(n.Cluster)
		if err := assign(n.Cluster, n.ID); err != nil {
			return nil, err
		}
	}

	for id, name := range membership {
		nodes[index[id]].Cluster = name
	}

	return clusters, nil
}
