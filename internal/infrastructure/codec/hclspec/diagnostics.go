package hclspec

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"archdiagram/internal/domain/entity"
)

type Problem struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// DiagnosticsError reports every error-level diagnostic found in a document.
type DiagnosticsError struct {
	File     string
	Problems []Problem
}

func (e *DiagnosticsError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msg := p.Summary
		if p.Detail != "" {
			msg = fmt.Sprintf("%s: %s", p.Summary, p.Detail)
		}
		parts = append(parts, fmt.Sprintf("%s:%d,%d: %s", e.File, p.Line, p.Column, msg))
	}
	return "invalid hcl: " + strings.Join(parts, "; ")
}

func (e *DiagnosticsError) Unwrap() error {
	return entity.ErrInvalidInput
}

func newDiagnosticsError(file string, diags hcl.Diagnostics) *DiagnosticsError {
	out := &DiagnosticsError{File: file}
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		p := Problem{Summary: diag.Summary, Detail: diag.Detail}
		if diag.Subject != nil {
			p.Line = diag.Subject.Start.Line
			p.Column = diag.Subject.Start.Column
		}
		out.Problems = append(out.Problems, p)
	}
	return out
}
