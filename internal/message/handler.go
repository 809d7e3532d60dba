package message

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Handler contains dependencies for handling message endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Errorw("list messages failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, messages)
}
