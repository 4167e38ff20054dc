package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"archdiagram/app/usecase"
	"archdiagram/internal/domain/entity"
	"archdiagram/internal/infrastructure/codec/hclspec"
	"archdiagram/internal/infrastructure/metrics"
)

const maxBodyBytes = 1 << 20

type DiagramHandler struct {
	diagrams usecase.DiagramUsecase
	chat     usecase.ChatUsecase
	health   usecase.HealthUsecase
	logger   *slog.Logger
	upgrader websocket.Upgrader

	requestTimeout time.Duration
}

func NewDiagramHandler(
	diagrams usecase.DiagramUsecase,
	chat usecase.ChatUsecase,
	health usecase.HealthUsecase,
	logger *slog.Logger,
) *DiagramHandler {
	return &DiagramHandler{
		diagrams: diagrams,
		chat:     chat,
		health:   health,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		requestTimeout: 120 * time.Second,
	}
}

// withMetrics records every request under its route template so ids do not
// explode label cardinality.
func (h *DiagramHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, path, strconv.Itoa(rw.status), time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *DiagramHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/generate", h.withMetrics(h.handleGenerate)).Methods(http.MethodPost)
	api.HandleFunc("/chat", h.withMetrics(h.handleChat)).Methods(http.MethodPost)
	api.HandleFunc("/diagrams", h.withMetrics(h.handleCreateDiagram)).Methods(http.MethodPost)
	api.HandleFunc("/diagrams", h.withMetrics(h.handleListDiagrams)).Methods(http.MethodGet)
	api.HandleFunc("/diagrams/{id}", h.withMetrics(h.handleGetDiagram)).Methods(http.MethodGet)
	api.HandleFunc("/diagrams/{id}", h.withMetrics(h.handleDeleteDiagram)).Methods(http.MethodDelete)
	api.HandleFunc("/diagrams/{id}/render", h.withMetrics(h.handleRenderDiagram)).Methods(http.MethodPost)
	api.HandleFunc("/diagrams/{id}/export", h.withMetrics(h.handleExportDiagram)).Methods(http.MethodGet)
	api.HandleFunc("/images", h.withMetrics(h.handleListImages)).Methods(http.MethodGet)
	api.HandleFunc("/images/{filename}", h.withMetrics(h.handleGetImage)).Methods(http.MethodGet)
	api.HandleFunc("/supported-components", h.withMetrics(h.handleSupportedComponents)).Methods(http.MethodGet)
	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)
	api.HandleFunc("/ws/chat", h.withMetrics(h.handleChatSession)).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", metrics.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error    string            `json:"error"`
	Problems []hclspec.Problem `json:"problems,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrUnknownNodeType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrInvalidInput), errors.Is(err, entity.ErrInvalidSpecification):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrUpstreamUnavailable), errors.Is(err, entity.ErrMalformedModelOutput):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *DiagramHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		h.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	}

	body := errorBody{Error: usecase.PublicMessage(err)}
	var diagErr *hclspec.DiagnosticsError
	if errors.As(err, &diagErr) {
		body.Problems = diagErr.Problems
	}
	writeJSON(w, code, body)
}
