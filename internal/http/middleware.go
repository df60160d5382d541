package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/pkg/httpx"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// userFromCtx returns the authenticated account placed there by
// AuthnMiddleware.
func userFromCtx(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(domain.User)
	return u, ok
}

// AuthnMiddleware authenticates requests with a bearer access token. The
// resolved account lands in the request context, together with the user id
// the per-user rate limiter keys on. Failures get a 401 with the RFC 6750
// challenge header.
func AuthnMiddleware(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}

			user, err := auth.ResolveAccount(r.Context(), token)
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpx.WriteError(w, http.StatusUnauthorized, detail)
}
