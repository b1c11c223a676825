package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/wolfman30/lead-manager/internal/http/envelope"
	"github.com/wolfman30/lead-manager/internal/tenancy"
)

// Authenticator resolves a bearer access token to the user it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (tenancy.Owner, error)
}

// RequireUser enforces a valid bearer access token and stores the
// authenticated owner in the request context.
func RequireUser(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			scheme, token, found := strings.Cut(header, " ")
			if header == "" || !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				envelope.Fail(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
				return
			}
			owner, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				envelope.Fail(w, http.StatusUnauthorized, "Given token not valid for any token type", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithOwner(r.Context(), owner)))
		})
	}
}
