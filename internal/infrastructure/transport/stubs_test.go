package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"archdiagram/app/usecase"
	"archdiagram/internal/domain/entity"
)

type stubDiagrams struct {
	usecase.DiagramUsecase

	mu sync.Mutex

	generate     usecase.GenerateResult
	descriptions []string

	created   usecase.CreateResult
	createErr error
	lastSpec  entity.Specification
	lastHCL   []byte

	details usecase.DiagramDetails
	getErr  error
	page    usecase.DiagramPage
	limit   int
	offset  int

	deleteErr error
	rendered  usecase.RenderResult
	renderErr error
	export    []byte

	images   map[string][]byte
	imageErr error
}

func (s *stubDiagrams) GenerateFromDescription(_ context.Context, description string) usecase.GenerateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptions = append(s.descriptions, description)
	return s.generate
}

func (s *stubDiagrams) CreateFromSpecification(_ context.Context, spec entity.Specification) (usecase.CreateResult, error) {
	s.lastSpec = spec
	return s.created, s.createErr
}

func (s *stubDiagrams) ImportHCL(_ context.Context, src []byte) (usecase.CreateResult, error) {
	s.lastHCL = src
	return s.created, s.createErr
}

func (s *stubDiagrams) GetByID(context.Context, string) (usecase.DiagramDetails, error) {
	return s.details, s.getErr
}

func (s *stubDiagrams) GetByName(context.Context, string) (usecase.DiagramDetails, error) {
	return s.details, s.getErr
}

func (s *stubDiagrams) GetAll(_ context.Context, limit, offset int) (usecase.DiagramPage, error) {
	s.limit, s.offset = limit, offset
	return s.page, nil
}

func (s *stubDiagrams) Delete(context.Context, string) error {
	return s.deleteErr
}

func (s *stubDiagrams) RenderExisting(context.Context, string) (usecase.RenderResult, error) {
	return s.rendered, s.renderErr
}

func (s *stubDiagrams) ExportHCL(context.Context, string) ([]byte, error) {
	return s.export, s.getErr
}

func (s *stubDiagrams) SupportedComponents() usecase.ComponentsResult {
	return usecase.ComponentsResult{
		SupportedComponents: []entity.Component{{Type: "aws_ec2", Provider: "aws", Category: "compute"}},
		Providers:           map[string]map[string][]string{"aws": {"compute": {"aws_ec2"}}},
		TotalCount:          1,
	}
}

func (s *stubDiagrams) ListImages(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	return names, nil
}

func (s *stubDiagrams) OpenImage(_ context.Context, name string) (io.ReadCloser, int64, error) {
	if s.imageErr != nil {
		return nil, 0, s.imageErr
	}
	data, ok := s.images[name]
	if !ok {
		return nil, 0, entity.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

type stubChat struct {
	result   usecase.ChatResult
	converse string
}

func (s *stubChat) Chat(context.Context, string) usecase.ChatResult { return s.result }

func (s *stubChat) Converse(context.Context, string) string { return s.converse }

type stubHealth struct {
	report usecase.HealthReport
}

func (s *stubHealth) Check(context.Context) usecase.HealthReport { return s.report }

type testServer struct {
	diagrams *stubDiagrams
	chat     *stubChat
	health   *stubHealth
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := &testServer{
		diagrams: &stubDiagrams{images: map[string][]byte{}},
		chat:     &stubChat{},
		health:   &stubHealth{report: usecase.HealthReport{Status: usecase.StatusHealthy}},
	}
	h := NewDiagramHandler(ts.diagrams, ts.chat, ts.health, logger)
	ts.handler = NewRouter(h, logger)
	return ts
}
