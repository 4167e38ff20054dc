package entity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type DiagramID string

func NewDiagramID() DiagramID {
	return DiagramID(uuid.NewString())
}

func ParseDiagramID(s string) (DiagramID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: diagram id is empty", ErrInvalidInput)
	}
	return DiagramID(s), nil
}

func (id DiagramID) String() string {
	return string(id)
}
