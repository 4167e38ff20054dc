package entity

import (
	"fmt"
	"strings"
)

// NodeType is a provider-qualified component tag such as "aws_ec2".
// Whether a type can be drawn is decided by the renderer catalog.
type NodeType string

func ParseNodeType(s string) (NodeType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: node type is empty", ErrInvalidSpecification)
	}
	return NodeType(strings.ToLower(s)), nil
}

func (t NodeType) Provider() string {
	provider, _, _ := strings.Cut(string(t), "_")
	return provider
}

func (t NodeType) Service() string {
	_, service, _ := strings.Cut(string(t), "_")
	return service
}

func (t NodeType) String() string {
	return string(t)
}
