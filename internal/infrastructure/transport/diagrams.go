package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"archdiagram/app/usecase"
	"archdiagram/internal/domain/entity"
)

type generateReq struct {
	Description string `json:"description"`
}

type chatReq struct {
	Message string `json:"message"`
}

// POST /api/v1/generate
func (h *DiagramHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	res := h.diagrams.GenerateFromDescription(ctx, req.Description)
	if !res.Success {
		code := statusFor(res.Err)
		h.logger.Warn("generation failed", "status", code, "err", res.Err)
		res.Error = usecase.PublicMessage(res.Err)
		writeJSON(w, code, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/v1/chat
func (h *DiagramHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	res := h.chat.Chat(ctx, req.Message)
	if res.Type == usecase.ChatTypeError {
		h.logger.Warn("chat failed", "err", res.Err)
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/v1/diagrams
// Accepts a JSON specification, or an HCL document with Content-Type application/hcl.
func (h *DiagramHandler) handleCreateDiagram(w http.ResponseWriter, r *http.Request) {
	if isHCL(r.Header.Get("Content-Type")) {
		src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			h.handleError(w, r, fmt.Errorf("%w: read body: %w", entity.ErrInvalidInput, err))
			return
		}
		res, err := h.diagrams.ImportHCL(r.Context(), src)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
		return
	}

	var spec entity.Specification
	if err := decodeJSON(w, r, &spec); err != nil {
		h.handleError(w, r, err)
		return
	}
	res, err := h.diagrams.CreateFromSpecification(r.Context(), spec)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GET /api/v1/diagrams?limit=&offset=&name=
func (h *DiagramHandler) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if name := strings.TrimSpace(q.Get("name")); name != "" {
		d, err := h.diagrams.GetByName(r.Context(), name)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
		return
	}

	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.handleError(w, r, fmt.Errorf("%w: limit: %w", entity.ErrInvalidInput, err))
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		h.handleError(w, r, fmt.Errorf("%w: offset: %w", entity.ErrInvalidInput, err))
		return
	}

	page, err := h.diagrams.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /api/v1/diagrams/{id}
func (h *DiagramHandler) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	d, err := h.diagrams.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DELETE /api/v1/diagrams/{id}
func (h *DiagramHandler) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	if err := h.diagrams.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/diagrams/{id}/render
func (h *DiagramHandler) handleRenderDiagram(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	res, err := h.diagrams.RenderExisting(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/diagrams/{id}/export
func (h *DiagramHandler) handleExportDiagram(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	src, err := h.diagrams.ExportHCL(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/hcl")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id + ".hcl"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(src)
}

// GET /api/v1/images
func (h *DiagramHandler) handleListImages(w http.ResponseWriter, r *http.Request) {
	names, err := h.diagrams.ListImages(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": names, "total_count": len(names)})
}

// GET /api/v1/images/{filename}
func (h *DiagramHandler) handleGetImage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	rc, size, err := h.diagrams.OpenImage(r.Context(), name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/png")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("image stream interrupted", "image", name, "err", err)
	}
}

// GET /api/v1/supported-components
func (h *DiagramHandler) handleSupportedComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.diagrams.SupportedComponents())
}

// GET /api/v1/health
func (h *DiagramHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())
	code := http.StatusOK
	if report.Status == usecase.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: bad request body: %w", entity.ErrInvalidInput, err)
	}
	return nil
}

func isHCL(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/hcl" || mt == "text/x-hcl"
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	return n, nil
}
