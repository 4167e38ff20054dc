package transport

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter wires the API routes behind CORS and panic recovery. The same
// handler serves the long-running server and the Lambda adapter.
func NewRouter(h *DiagramHandler, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(cors(r))
}
