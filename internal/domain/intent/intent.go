// Package intent decides whether a chat message asks for a diagram.
package intent

import "strings"

type Intent int

const (
	GeneralQuery Intent = iota
	DiagramRequest
)

func (i Intent) String() string {
	switch i {
	case DiagramRequest:
		return "diagram_request"
	default:
		return "general_query"
	}
}

var (
	diagramVerbs = []string{"create", "generate", "make", "build", "draw", "design", "show"}
	diagramNouns = []string{"diagram", "architecture", "infrastructure"}
	cloudTerms   = []string{"aws", "azure", "gcp", "cloud", "ec2", "rds", "s3", "lambda", "vpc", "subnet"}

	// Looser list used to pick the prompt for a single assistant turn.
	generationKeywords = []string{"diagram", "create", "generate", "show", "draw", "build", "architecture"}
)

// Classify marks a message as a diagram request when it contains a
// creation verb and either a diagram noun or a cloud term.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	if containsAny(lower, diagramVerbs) && (containsAny(lower, diagramNouns) || containsAny(lower, cloudTerms)) {
		return DiagramRequest
	}
	return GeneralQuery
}

func HasGenerationKeyword(text string) bool {
	return containsAny(strings.ToLower(text), generationKeywords)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
