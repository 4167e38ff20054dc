package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/app/usecase"
	"archdiagram/internal/domain/entity"
	"archdiagram/internal/infrastructure/codec/hclspec"
)

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", entity.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("x: %w", entity.ErrInvalidSpecification), http.StatusBadRequest},
		{&entity.UnknownNodeTypeError{Type: "aws_nope"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", entity.ErrUpstreamUnavailable, errors.New("dial")), http.StatusBadGateway},
		{entity.ErrMalformedModelOutput, http.StatusBadGateway},
		{fmt.Errorf("find: %w", entity.ErrNotFound), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestGenerate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.generate = usecase.GenerateResult{
			Success:   true,
			DiagramID: "d-1",
			ImageURL:  "/api/v1/images/x.png",
			Message:   "Web diagram generated successfully",
		}

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/generate", "application/json", `{"description":"web app"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "d-1", body["diagram_id"])
		assert.Equal(t, "/api/v1/images/x.png", body["image_url"])
		assert.Equal(t, []string{"web app"}, ts.diagrams.descriptions)
	})

	t.Run("upstream failure", func(t *testing.T) {
		ts := newTestServer(t)
		err := fmt.Errorf("generate specification: %w: %w", entity.ErrUpstreamUnavailable, errors.New("timeout"))
		ts.diagrams.generate = usecase.GenerateResult{Success: false, Error: err.Error(), Err: err}

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/generate", "application/json", `{"description":"web app"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, usecase.MsgUpstream, body["error"])
		assert.NotContains(t, rec.Body.String(), "timeout")
	})

	t.Run("internal failure hides detail", func(t *testing.T) {
		ts := newTestServer(t)
		err := errors.New("save diagram: connection reset by peer")
		ts.diagrams.generate = usecase.GenerateResult{Success: false, Error: err.Error(), Err: err}

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/generate", "application/json", `{"description":"web app"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])
	})

	t.Run("bad body", func(t *testing.T) {
		ts := newTestServer(t)
		rec := do(t, ts.handler, http.MethodPost, "/api/v1/generate", "application/json", `{"description":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ts.diagrams.descriptions)
	})
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.result = usecase.ChatResult{Type: usecase.ChatTypeText, Response: "hello"}

	rec := do(t, ts.handler, http.MethodPost, "/api/v1/chat", "application/json", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "text", body["type"])
	assert.Equal(t, "hello", body["response"])
}

func TestChatEndpointError(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.result = usecase.ChatResult{
		Type:     usecase.ChatTypeError,
		Response: "Failed to process message: " + usecase.MsgInternal,
		Err:      errors.New(`save diagram: pq: password authentication failed for user "admin"`),
	}

	rec := do(t, ts.handler, http.MethodPost, "/api/v1/chat", "application/json", `{"message":"draw it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["type"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestCreateDiagram(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.created = usecase.CreateResult{DiagramID: "d-1", Name: "Web"}

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/diagrams", "application/json",
			`{"name":"Web","nodes":[{"id":"a","type":"aws_ec2","label":"A"}],"connections":[]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "d-1", decodeBody(t, rec)["diagram_id"])
		assert.Equal(t, "Web", ts.diagrams.lastSpec.Name)
		assert.Len(t, ts.diagrams.lastSpec.Nodes, 1)
	})

	t.Run("hcl", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.created = usecase.CreateResult{DiagramID: "d-2", Name: "Web"}
		src := `diagram "Web" {}`

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/diagrams", "application/hcl; charset=utf-8", src)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, src, string(ts.diagrams.lastHCL))
	})

	t.Run("hcl diagnostics", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.createErr = fmt.Errorf("decode hcl: %w", &hclspec.DiagnosticsError{
			File:     "import.hcl",
			Problems: []hclspec.Problem{{Summary: "Missing required argument", Line: 3, Column: 5}},
		})

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/diagrams", "application/hcl", `diagram "x" {}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		problems, ok := body["problems"].([]interface{})
		require.True(t, ok)
		require.Len(t, problems, 1)
		assert.Equal(t, float64(3), problems[0].(map[string]interface{})["line"])
	})

	t.Run("invalid specification", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.createErr = fmt.Errorf("build diagram: %w: no nodes", entity.ErrInvalidSpecification)

		rec := do(t, ts.handler, http.MethodPost, "/api/v1/diagrams", "application/json", `{"name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "no nodes")
	})
}

func TestDiagramReads(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		ts := newTestServer(t)
		d, err := entity.NewDiagram("Web", nil)
		require.NoError(t, err)
		ts.diagrams.details = usecase.DiagramDetails{Diagram: d, Statistics: d.Statistics()}

		rec := do(t, ts.handler, http.MethodGet, "/api/v1/diagrams/"+d.ID.String(), "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, d.ID.String(), body["id"])
		assert.Equal(t, "Web", body["name"])
		assert.Contains(t, body, "statistics")
	})

	t.Run("missing", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.getErr = fmt.Errorf("find diagram x: %w", entity.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, do(t, ts.handler, http.MethodGet, "/api/v1/diagrams/x", "", "").Code)
		assert.Equal(t, http.StatusNotFound, do(t, ts.handler, http.MethodGet, "/api/v1/diagrams/x/export", "", "").Code)
	})

	t.Run("list with paging", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.page = usecase.DiagramPage{Diagrams: []usecase.DiagramDetails{}, Total: 0, Limit: 5, Offset: 10}

		rec := do(t, ts.handler, http.MethodGet, "/api/v1/diagrams?limit=5&offset=10", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, ts.diagrams.limit)
		assert.Equal(t, 10, ts.diagrams.offset)

		rec = do(t, ts.handler, http.MethodGet, "/api/v1/diagrams?limit=lots", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("export", func(t *testing.T) {
		ts := newTestServer(t)
		ts.diagrams.export = []byte(`diagram "Web" {}`)

		rec := do(t, ts.handler, http.MethodGet, "/api/v1/diagrams/abc/export", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/hcl", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "abc.hcl")
		assert.Equal(t, `diagram "Web" {}`, rec.Body.String())
	})
}

func TestDeleteAndRender(t *testing.T) {
	ts := newTestServer(t)

	rec := do(t, ts.handler, http.MethodDelete, "/api/v1/diagrams/abc", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	ts.diagrams.deleteErr = entity.ErrNotFound
	assert.Equal(t, http.StatusNotFound, do(t, ts.handler, http.MethodDelete, "/api/v1/diagrams/abc", "", "").Code)

	ts.diagrams.rendered = usecase.RenderResult{DiagramID: "abc", Image: "i.png", ImageURL: "/api/v1/images/i.png"}
	rec = do(t, ts.handler, http.MethodPost, "/api/v1/diagrams/abc/render", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "i.png", decodeBody(t, rec)["image"])

	ts.diagrams.renderErr = &entity.UnknownNodeTypeError{Type: "aws_nope"}
	rec = do(t, ts.handler, http.MethodPost, "/api/v1/diagrams/abc/render", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "aws_nope")
}

func TestImages(t *testing.T) {
	ts := newTestServer(t)
	ts.diagrams.images["a.png"] = []byte("\x89PNG")

	rec := do(t, ts.handler, http.MethodGet, "/api/v1/images/a.png", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "\x89PNG", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, ts.handler, http.MethodGet, "/api/v1/images/b.png", "", "").Code)

	rec = do(t, ts.handler, http.MethodGet, "/api/v1/images", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total_count"])
}

func TestHealthAndComponents(t *testing.T) {
	ts := newTestServer(t)

	rec := do(t, ts.handler, http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	ts.health.report.Status = usecase.StatusUnhealthy
	assert.Equal(t, http.StatusServiceUnavailable, do(t, ts.handler, http.MethodGet, "/api/v1/health", "", "").Code)

	rec = do(t, ts.handler, http.MethodGet, "/api/v1/supported-components", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total_count"])
}

func TestMetricsAndCORS(t *testing.T) {
	ts := newTestServer(t)

	do(t, ts.handler, http.MethodGet, "/api/v1/health", "", "")
	rec := do(t, ts.handler, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/v1/health"`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://example.com")
	cors := httptest.NewRecorder()
	ts.handler.ServeHTTP(cors, req)
	assert.Equal(t, "*", cors.Header().Get("Access-Control-Allow-Origin"))
}
