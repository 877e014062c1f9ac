package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/storyvault/storyvault/pkg/storyvault"
)

// AdminHandler serves health, identity and storage inspection endpoints.
type AdminHandler struct {
	store storyvault.BlobStore
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storyvault.BlobStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// Index greets a caller presenting a valid token by name, or reports the
// anonymous state. Unlike the API routes, a missing token is not an error
// here.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	if identity, ok := identityFromToken(r.Context()); ok {
		fmt.Fprintf(w, "Hello, %s (%s)", identity.Name, identity.Email)
		return
	}
	fmt.Fprint(w, "You are not logged in.")
}

// Ready is the health check endpoint.
func (h *AdminHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// UserInfo returns the identity carried by the verified token.
func (h *AdminHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	render.JSON(w, r, map[string]string{
		"sub":   identity.ID,
		"name":  identity.Name,
		"email": identity.Email,
	})
}

// Verify confirms the caller's token is valid and echoes the identity.
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	render.JSON(w, r, map[string]any{
		"authenticated": true,
		"user": map[string]string{
			"sub":   identity.ID,
			"name":  identity.Name,
			"email": identity.Email,
		},
	})
}

// ListBuckets lists the buckets visible to the storage backend.
func (h *AdminHandler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.store.ListBuckets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"buckets": buckets})
}

// ListObjects lists object keys under an optional prefix, with the distinct
// owner ids present in the listing.
func (h *AdminHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	keys, err := h.store.List(r.Context(), prefix)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"prefix":  prefix,
		"objects": keys,
		"owners":  storyvault.OwnerIDs(keys),
	})
}
