package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

const bearerScheme = "bearer"

// TokenVerifier is the part of TokenCodec the Gate depends on.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// Denylist is consulted after a token verifies. Returning ErrRevoked rejects
// the request with 401; any other error is an internal fault.
type Denylist interface {
	Check(ctx context.Context, claims Claims) error
}

// Gate authenticates requests to protected routes.
type Gate struct {
	verifier TokenVerifier
	denylist Denylist
	logger   *zap.SugaredLogger
}

func NewGate(verifier TokenVerifier, logger *zap.SugaredLogger) *Gate {
	return &Gate{verifier: verifier, logger: logger}
}

// WithDenylist returns a copy of g that also consults d.
func (g *Gate) WithDenylist(d Denylist) *Gate {
	cp := *g
	cp.denylist = d
	return &cp
}

// Middleware rejects unauthenticated requests and attaches the Identity for
// the ones it lets through.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.authenticate(r)
		if err != nil {
			if IsRejection(err) {
				g.logger.Warnw("request rejected",
					"method", r.Method,
					"route", r.URL.Path,
					"failure", failureClass(err),
				)
				w.Header().Set("WWW-Authenticate", "Bearer")
				utilities.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			g.logger.Errorw("token verification fault",
				"method", r.Method,
				"route", r.URL.Path,
				"err", err,
			)
			utilities.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		ctx := WithIdentity(r.Context(), Identity{Subject: claims.Subject})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) authenticate(r *http.Request) (Claims, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Claims{}, ErrMissingCredentials
	}
	claims, err := g.verifier.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if g.denylist != nil {
		if err := g.denylist.Check(r.Context(), claims); err != nil {
			return Claims{}, err
		}
	}
	return claims, nil
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
