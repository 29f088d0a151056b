package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/middleware"
	"github.com/motoclube/roleplanner/internal/outbox"
)

// Applier is the service the handler depends on.
type Applier interface {
	Apply(ctx context.Context, subject string, ops []domain.SyncOperation) (BatchResult, error)
	Get(ctx context.Context, table domain.Table, id string) (Record, error)
}

// Handler serves the sync receiver API.
type Handler struct {
	svc    Applier
	logger *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc Applier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// BatchResponse extends the sender-visible reply with apply details.
type BatchResponse struct {
	outbox.BatchResponse
	BatchID string `json:"batch_id"`
	Applied int    `json:"applied"`
	Stale   int    `json:"stale"`
}

// Routes mounts the receiver endpoints. Everything except /healthz requires a
// bearer token signed with secret.
func (h *Handler) Routes(secret string) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuth(secret, h.logger))
		r.Post("/sync/batch", h.PostBatch)
		r.Get("/sync/records/{table}/{id}", h.GetRecord)
	})
	return r
}

// PostBatch handles POST /sync/batch.
// 200 {accepted:n}; 422 for a malformed batch, in which case nothing is stored.
func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var req outbox.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		batchesReceived.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid JSON body: "+err.Error())
		return
	}

	res, err := h.svc.Apply(r.Context(), middleware.Subject(r.Context()), req.Operations)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			batchesReceived.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		batchesReceived.WithLabelValues("error").Inc()
		h.logger.Error("apply batch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	batchesReceived.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, BatchResponse{
		BatchResponse: outbox.BatchResponse{Accepted: res.Accepted},
		BatchID:       res.BatchID.String(),
		Applied:       res.Applied,
		Stale:         res.Stale,
	})
}

// GetRecord handles GET /sync/records/{table}/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), domain.Table(chi.URLParam(r, "table")), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		h.logger.Error("get record failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}
