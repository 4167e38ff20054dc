package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidSpecification = errors.New("invalid specification")
	ErrMalformedModelOutput = errors.New("malformed model output")
	ErrUnknownNodeType      = errors.New("unknown node type")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrNotFound             = errors.New("not found")
)

// UnknownNodeTypeError carries the offending type so callers can report it.
type UnknownNodeTypeError struct {
	Type string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("unknown node type %q", e.Type)
}

func (e *UnknownNodeTypeError) Is(target error) bool {
	return target == ErrUnknownNodeType
}
