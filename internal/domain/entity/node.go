package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxNodeLabelLength   = 200
	MaxDiagramNameLength = 100
)

type Node struct {
	ID      string   `json:"id" bson:"id"`
	Type    NodeType `json:"type" bson:"type"`
	Label   string   `json:"label" bson:"label"`
	Cluster string   `json:"cluster,omitempty" bson:"cluster,omitempty"`
}

func NewNode(id, nodeType, label, cluster string) (Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Node{}, fmt.Errorf("%w: node id is empty", ErrInvalidSpecification)
	}

	t, err := ParseNodeType(nodeType)
	if err != nil {
		return Node{}, fmt.Errorf("node %q: %w", id, err)
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return Node{}, fmt.Errorf("%w: node %q has an empty label", ErrInvalidSpecification, id)
	}
	if utf8.RuneCountInString(label) > MaxNodeLabelLength {
		return Node{}, fmt.Errorf("%w: node %q label exceeds %d characters", ErrInvalidSpecification, id, MaxNodeLabelLength)
	}

	return Node{
		ID:      id,
		Type:    t,
		Label:   label,
		Cluster: strings.TrimSpace(cluster),
	}, nil
}

func (n Node) InCluster() bool {
	return n.Cluster != ""
}
