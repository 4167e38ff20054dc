package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"archdiagram/internal/domain/entity"
)

// ExtractJSON returns the JSON object embedded in a model reply. A fenced
// ```json block wins; otherwise the span from the first '{' to the last '}'
// is taken. The span must be valid JSON.
func ExtractJSON(text string) (string, error) {
	candidate, ok := fencedJSON(text)
	if !ok {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end < start {
			return "", fmt.Errorf("%w: no JSON object in model reply", entity.ErrMalformedModelOutput)
		}
		candidate = text[start : end+1]
	}

	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: model reply is not valid JSON", entity.ErrMalformedModelOutput)
	}
	return candidate, nil
}

func fencedJSON(text string) (string, bool) {
	const open = "```json"
	start := strings.Index(text, open)
	if start == -1 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	body := strings.TrimSpace(rest[:end])
	if !strings.HasPrefix(body, "{") {
		return "", false
	}
	return body, true
}

// LooksLikeSpecification reports whether raw is a JSON object with a "nodes" key.
func LooksLikeSpecification(raw string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return false
	}
	_, ok := fields["nodes"]
	return ok
}

// DecodeSpecification decodes an extracted JSON object into a Specification.
// It checks shape only; structural rules belong to the builder.
func DecodeSpecification(raw string) (entity.Specification, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return entity.Specification{}, fmt.Errorf("%w: expected a JSON object: %v", entity.ErrMalformedModelOutput, err)
	}
	for _, required := range []string{"name", "nodes"} {
		if _, ok := fields[required]; !ok {
			return entity.Specification{}, fmt.Errorf("%w: missing %q", entity.ErrInvalidSpecification, required)
		}
	}

	var spec entity.Specification
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&spec); err != nil {
		return entity.Specification{}, fmt.Errorf("%w: %v", entity.ErrInvalidSpecification, err)
	}
	if strings.TrimSpace(spec.Name) == "" {
		return entity.Specification{}, fmt.Errorf("%w: name is blank", entity.ErrInvalidSpecification)
	}
	return spec, nil
}
