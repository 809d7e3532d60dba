package user

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// TokenIssuer signs session tokens. *auth.TokenCodec satisfies it.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// Handler exposes HTTP endpoints for user operations (signup / login / me).
type Handler struct {
	svc    *UserService
	issuer TokenIssuer
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, issuer TokenIssuer, ttl time.Duration, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, issuer: issuer, ttl: ttl, logger: logger}
}

// CredentialsRequest is the body of signup and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries a freshly issued bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.svc.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			utilities.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUsernameTaken):
			utilities.WriteError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Errorw("signup failed", "err", err)
			utilities.WriteError(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}
	h.logger.Infow("user registered", "user_id", u.ID)
	utilities.WriteJSON(w, http.StatusCreated, u.Profile())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login failed", "err", err)
			utilities.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := h.issuer.Issue(u.ID, h.ttl)
	if err != nil {
		h.logger.Errorw("token issuance failed", "user_id", u.ID, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.ttl / time.Second),
	})
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.logger.Errorw("identity missing on protected route", "route", r.URL.Path)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	u, err := h.svc.GetByID(r.Context(), id.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utilities.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Errorw("load current user failed", "user_id", id.Subject, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u.Profile())
}
