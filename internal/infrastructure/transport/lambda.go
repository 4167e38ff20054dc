package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"

	"archdiagram/internal/infrastructure/metrics"
)

// LambdaHandler serves API Gateway proxy events through the HTTP router. It
// is httpadapter.HandlerAdapter with a 400 for events that cannot be decoded.
type LambdaHandler struct {
	core.RequestAccessor
	next   http.Handler
	logger *slog.Logger
}

func NewLambdaHandler(next http.Handler, logger *slog.Logger) *LambdaHandler {
	return &LambdaHandler{next: next, logger: logger}
}

func (l *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := l.EventToRequestWithContext(ctx, event)
	if err != nil {
		metrics.IncError("lambda", "decode_event")
		l.logger.Warn("lambda event rejected", "path", event.Path, "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusBadRequest,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              `{"error":"invalid request event"}`,
		}, nil
	}

	w := core.NewProxyResponseWriter()
	l.next.ServeHTTP(w, req)

	resp, err := w.GetProxyResponse()
	if err != nil {
		metrics.IncError("lambda", "encode_response")
		l.logger.Error("lambda response failed", "path", event.Path, "err", err)
		return core.GatewayTimeout(), err
	}
	return resp, nil
}
