package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"examreg/internal/registration/models"
	"examreg/internal/registration/service"
	id "examreg/pkg/domain"
	dErrors "examreg/pkg/domain-errors"
	"examreg/pkg/requestcontext"
)

// Service defines the interface for registration operations.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*service.CreateResult, error)
	Get(ctx context.Context, regID id.RegistrationID) (*service.Detail, error)
	List(ctx context.Context) ([]*models.Registration, error)
	Update(ctx context.Context, regID id.RegistrationID, req *models.UpdateRequest) (*models.Registration, error)
	Delete(ctx context.Context, regID id.RegistrationID) error
}

// Handler handles registration endpoints. It stays thin: decode, delegate,
// encode. Business rules live in the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new registration Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Create(ctx, &req)
	if err != nil {
		h.logError(ctx, "create registration failed", err)
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, createResponse{
		Registration: result.Registration,
		Created:      result.Created,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.service.Get(ctx, regID)
	if err != nil {
		h.logError(ctx, "get registration failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regs, err := h.service.List(ctx)
	if err != nil {
		h.logError(ctx, "list registrations failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Registrations: regs})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.service.Update(ctx, regID, &req)
	if err != nil {
		h.logError(ctx, "update registration failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(ctx, regID); err != nil {
		h.logError(ctx, "delete registration failed", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logError keeps caller mistakes at warn and persistence faults at error so
// on-call noise tracks actual system health.
func (h *Handler) logError(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
