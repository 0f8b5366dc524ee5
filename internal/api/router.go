package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, journal index.Journal, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, journal)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/templates", h.ListTemplates)

	r.Route("/render", func(r chi.Router) {
		r.Post("/", h.RenderText)
		r.Post("/insert", h.InsertTemplate)
		r.Post("/file", h.RenderFile)
		r.Post("/selection", h.RenderSelection)
	})
	r.Get("/renders", h.ListRenders)

	r.Get("/commands", h.ListCommands)
	r.Post("/commands/{id}", h.ExecuteCommand)

	r.Get("/settings", h.GetSettings)
	r.Get("/settings/fields", h.ListSettingFields)
	r.Put("/settings/{key}", h.SetSetting)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
