package product

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/product/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Handler contains dependencies for handling product endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the body of POST /products.
type CreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.logger.Errorw("identity missing on protected route", "route", r.URL.Path)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	var req CreateRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid product payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Price == nil {
		utilities.WriteError(w, http.StatusBadRequest, "price is required")
		return
	}
	p, err := h.svc.Create(r.Context(), caller.Subject, CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
	})
	if err != nil {
		h.fail(w, err, "create product", "")
		return
	}
	h.logger.Infow("product created", "product_id", p.ID, "created_by", p.CreatedBy)
	utilities.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, err, "list products", "")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get product", id)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch entity.Patch
	if err := utilities.DecodeJSON(r, &patch); err != nil {
		h.logger.Debugw("invalid product patch", "product_id", id, "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	p, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err, "update product", id)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "delete product", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors to status codes. Store faults are logged with
// detail and answered with a generic message.
func (h *Handler) fail(w http.ResponseWriter, err error, action, id string) {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidInput):
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw(action+" failed", "product_id", id, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
