package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/storyvault/storyvault/pkg/storyvault"
)

// RouterConfig collects the dependencies of the HTTP surface.
type RouterConfig struct {
	Service      storyvault.Service
	Store        storyvault.BlobStore
	TokenAuth    *jwtauth.JWTAuth
	MaxBodyBytes int64
}

// NewRouter assembles the full route tree: health and greeting endpoints
// served to anonymous callers, plus the authenticated entity and admin APIs.
// The body-size guard applies before any handler reads a request body.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(SizeValidation(cfg.MaxBodyBytes))
	r.Use(jwtauth.Verifier(cfg.TokenAuth))

	admin := NewAdminHandler(cfg.Store)
	r.Get("/", admin.Index)
	r.Get("/ready", admin.Ready)

	r.Group(func(r chi.Router) {
		r.Use(Authenticator)

		r.Get("/verify", admin.Verify)
		r.Get("/api/userinfo", admin.UserInfo)
		r.Get("/api/s3/buckets", admin.ListBuckets)
		r.Get("/api/s3/list", admin.ListObjects)

		r.Mount("/api", NewHandler(cfg.Service).Routes())
	})

	return r
}
