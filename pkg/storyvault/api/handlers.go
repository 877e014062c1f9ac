package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/storyvault/storyvault/pkg/storyvault"
	"github.com/storyvault/storyvault/pkg/storyvault/sizelimit"
)

// Handler serves the session and story endpoints.
type Handler struct {
	svc storyvault.Service
}

// NewHandler creates a new entity handler
func NewHandler(svc storyvault.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the router for entity endpoints. All routes assume an
// authenticated caller.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Mount("/sessions", h.entityRoutes(storyvault.EntityTypeSession))
	r.Mount("/stories", h.entityRoutes(storyvault.EntityTypeStory))
	r.Delete("/user/data", h.PurgeUserData)
	return r
}

func (h *Handler) entityRoutes(entityType storyvault.EntityType) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create(entityType))
	r.Get("/", h.list(entityType))
	r.Get("/{id}", h.get(entityType))
	r.Get("/{id}/data", h.getData(entityType))
	r.Put("/{id}", h.update(entityType))
	r.Delete("/{id}", h.delete(entityType))
	if entityType == storyvault.EntityTypeStory {
		r.Post("/{id}/publish", h.setPublished(true))
		r.Post("/{id}/unpublish", h.setPublished(false))
	}
	return r
}

// create handles a multipart upload. Text fields must precede the data file
// part so the metadata is complete before the payload streams to storage;
// anything after the file part is ignored.
func (h *Handler) create(entityType storyvault.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		mr, err := r.MultipartReader()
		if err != nil {
			writeBadRequest(w, r, "Expected multipart/form-data body")
			return
		}

		req := storyvault.SaveRequest{
			Type:    entityType,
			Creator: identity.Creator(),
		}

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				writeBadRequest(w, r, "Missing file part")
				return
			}
			if err != nil {
				writeError(w, r, bodyError(r, err))
				return
			}

			if part.FileName() != "" {
				req.FileName = part.FileName()
				req.Payload = part

				meta, err := h.svc.Save(r.Context(), req)
				if err != nil {
					writeError(w, r, bodyError(r, err))
					return
				}

				slog.Info("Entity created", "type", entityType, "id", meta.ID, "owner", identity.ID)
				render.Status(r, http.StatusCreated)
				render.JSON(w, r, meta)
				return
			}

			value, err := readField(part)
			if err != nil {
				writeError(w, r, bodyError(r, err))
				return
			}
			switch part.FormName() {
			case "title":
				req.Title = value
			case "description":
				req.Description = value
			case "tags":
				req.Tags = append(req.Tags, value)
			}
		}
	}
}

func (h *Handler) list(entityType storyvault.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		items, err := h.svc.List(r.Context(), entityType, identity.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, items)
	}
}

func (h *Handler) get(entityType storyvault.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		entity, err := h.svc.Get(r.Context(), entityType, identity.ID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, entity.Metadata)
	}
}

func (h *Handler) getData(entityType storyvault.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		entity, err := h.svc.Get(r.Context(), entityType, identity.ID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", entityType.DataContentType())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(entity.Payload); err != nil {
			slog.Warn("Failed to write payload response", "id", entity.ID, "error", err)
		}
	}
}

func (h *Handler) update(entityType storyvault.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		var patch storyvault.MetadataPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			if limitErr := bodyLimitError(r); limitErr != nil {
				writeError(w, r, limitErr)
				return
			}
			writeBadRequest(w, r, "Invalid JSON body")
			return
		}

		meta, err := h.svc.Update(r.Context(), storyvault.UpdateRequest{
			Type:    entityType,
			OwnerID: identity.ID,
			ID:      chi.URLParam(r, "id"),
			Patch:   patch,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, meta)
	}
}

func (h *Handler) delete(entityType storyvault.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		id := chi.URLParam(r, "id")
		if err := h.svc.Delete(r.Context(), entityType, identity.ID, id); err != nil {
			writeError(w, r, err)
			return
		}

		slog.Info("Entity deleted", "type", entityType, "id", id, "owner", identity.ID)
		render.JSON(w, r, map[string]string{"status": "deleted"})
	}
}

func (h *Handler) setPublished(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
			return
		}

		meta, err := h.svc.SetPublished(r.Context(), identity.ID, chi.URLParam(r, "id"), published)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, meta)
	}
}

// PurgeUserData deletes every object owned by the caller.
func (h *Handler) PurgeUserData(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeEnvelope(w, r, http.StatusUnauthorized, "Missing identity", nil)
		return
	}

	deleted, err := h.svc.PurgeOwner(r.Context(), identity.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("User data purged", "owner", identity.ID, "objects_deleted", deleted)
	render.JSON(w, r, map[string]any{
		"status":          "purged",
		"objects_deleted": deleted,
	})
}

// readField reads one multipart text field in full. Field sizes are bounded
// by the request-body ceiling already applied to the stream.
func readField(part io.Reader) (string, error) {
	data, err := io.ReadAll(part)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// bodyLimitError returns the ceiling violation recorded on the request body
// guard, if any.
func bodyLimitError(r *http.Request) error {
	if guarded, ok := r.Body.(*sizelimit.Reader); ok {
		return guarded.Err()
	}
	return nil
}

// bodyError prefers the body guard's violation over err. The multipart
// decoder rewraps stream errors in its own messages, which would otherwise
// hide the violation from the response translation.
func bodyError(r *http.Request, err error) error {
	var tooLarge *storyvault.PayloadTooLargeError
	if errors.As(err, &tooLarge) {
		return err
	}
	if limitErr := bodyLimitError(r); limitErr != nil {
		return limitErr
	}
	return err
}
