package transport

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/app/usecase"
)

func TestLambdaHandler(t *testing.T) {
	ts := newTestServer(t)
	lh := NewLambdaHandler(ts.handler, slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("json", func(t *testing.T) {
		ts.diagrams.page = usecase.DiagramPage{Diagrams: []usecase.DiagramDetails{}, Limit: 3}
		resp, err := lh.Handle(context.Background(), events.APIGatewayProxyRequest{
			HTTPMethod:            http.MethodGet,
			Path:                  "/api/v1/diagrams",
			QueryStringParameters: map[string]string{"limit": "3", "offset": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, resp.IsBase64Encoded)
		assert.Contains(t, resp.Body, `"limit":3`)
		assert.Equal(t, 3, ts.diagrams.limit)
		assert.Equal(t, 1, ts.diagrams.offset)
	})

	t.Run("base64 request body", func(t *testing.T) {
		ts.diagrams.generate = usecase.GenerateResult{Success: true, DiagramID: "d-9"}
		resp, err := lh.Handle(context.Background(), events.APIGatewayProxyRequest{
			HTTPMethod:      http.MethodPost,
			Path:            "/api/v1/generate",
			Headers:         map[string]string{"Content-Type": "application/json"},
			Body:            base64.StdEncoding.EncodeToString([]byte(`{"description":"queue worker"}`)),
			IsBase64Encoded: true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Body, `"diagram_id":"d-9"`)
	})

	t.Run("binary response", func(t *testing.T) {
		ts.diagrams.images["a.png"] = []byte{0x89, 'P', 'N', 'G', 0xff}
		resp, err := lh.Handle(context.Background(), events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodGet,
			Path:       "/api/v1/images/a.png",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, resp.IsBase64Encoded)
		raw, err := base64.StdEncoding.DecodeString(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0xff}, raw)
		assert.Equal(t, []string{"image/png"}, resp.MultiValueHeaders["Content-Type"])
	})

	t.Run("bad base64", func(t *testing.T) {
		resp, err := lh.Handle(context.Background(), events.APIGatewayProxyRequest{
			HTTPMethod:      http.MethodPost,
			Path:            "/api/v1/generate",
			Body:            "!!!",
			IsBase64Encoded: true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotContains(t, resp.Body, "illegal base64")
	})

	t.Run("multi value headers and query", func(t *testing.T) {
		ts.diagrams.page = usecase.DiagramPage{Diagrams: []usecase.DiagramDetails{}}
		resp, err := lh.Handle(context.Background(), events.APIGatewayProxyRequest{
			HTTPMethod:                      http.MethodGet,
			Path:                            "/api/v1/diagrams",
			MultiValueQueryStringParameters: map[string][]string{"limit": {"7"}, "offset": {"2"}},
			MultiValueHeaders:               map[string][]string{"Accept": {"application/json", "text/plain"}},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 7, ts.diagrams.limit)
		assert.Equal(t, 2, ts.diagrams.offset)
		assert.Equal(t, []string{"application/json"}, resp.MultiValueHeaders["Content-Type"])
	})

	t.Run("no content", func(t *testing.T) {
		resp, err := lh.Handle(context.Background(), events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodDelete,
			Path:       "/api/v1/diagrams/" + "0b7f5a4e-8c1d-4a57-9d55-3f0e6a2b9c10",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, resp.Body)
	})
}
