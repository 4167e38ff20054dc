package entity

import (
	"fmt"
	"strings"
)

type Connection struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
	Label  string `json:"label,omitempty" bson:"label,omitempty"`
}

func NewConnection(source, target, label string) (Connection, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return Connection{}, fmt.Errorf("%w: connection endpoints must be non-empty", ErrInvalidSpecification)
	}
	return Connection{
		Source: source,
		Target: target,
		Label:  strings.TrimSpace(label),
	}, nil
}

func (c Connection) HasLabel() bool {
	return c.Label != ""
}

func (c Connection) Touches(nodeID string) bool {
	return c.Source == nodeID || c.Target == nodeID
}
