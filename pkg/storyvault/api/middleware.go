package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/storyvault/storyvault/pkg/storyvault"
	"github.com/storyvault/storyvault/pkg/storyvault/sizelimit"
)

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	ID    string
	Name  string
	Email string
}

type contextKey string

const identityKey contextKey = "identity"

// NewTokenAuth builds the HS256 token verifier used by the API.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Authenticator rejects requests without a valid verified token and stores
// the caller identity in the request context. It must run after
// jwtauth.Verifier.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromToken(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Invalid or missing token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFromToken extracts the caller from a token verified by
// jwtauth.Verifier. A token without a subject claim is rejected.
func identityFromToken(ctx context.Context) (Identity, bool) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, false
	}

	identity := Identity{
		ID:    stringClaim(claims, "sub"),
		Name:  stringClaim(claims, "name"),
		Email: stringClaim(claims, "email"),
	}
	if identity.ID == "" {
		return Identity{}, false
	}
	return identity, true
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// IdentityFromContext returns the verified caller stored by Authenticator.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// Creator converts the identity to the form stored in metadata documents.
func (i Identity) Creator() storyvault.Creator {
	return storyvault.Creator{ID: i.ID, Name: i.Name, Email: i.Email}
}

// SizeValidation enforces a byte ceiling on request bodies. A truthful
// Content-Length over the ceiling is rejected before any body byte is read;
// everything else is wrapped in a counting reader so an understated or
// missing Content-Length is caught while the handler streams the body.
func SizeValidation(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				slog.Warn("Rejecting oversized request by declared length",
					"method", r.Method, "path", r.URL.Path,
					"content_length", r.ContentLength, "limit", maxBytes)
				writeError(w, r, &storyvault.PayloadTooLargeError{
					Limit:    maxBytes,
					Received: r.ContentLength,
				})
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = sizelimit.NewReader(r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
