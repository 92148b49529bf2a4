package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	galleryHandler "github.com/mstepanek/gallery-voice/backend/internal/handler/gallery"
	sessionHandler "github.com/mstepanek/gallery-voice/backend/internal/handler/session"
	middlewarePkg "github.com/mstepanek/gallery-voice/backend/internal/middleware"
	galleryModel "github.com/mstepanek/gallery-voice/backend/internal/model/gallery"
)

// NewRouter wires HTTP routes to the dataset store and the session handler.
// sessions may be nil when no realtime backend is configured; the dataset
// endpoints keep working on their own.
func NewRouter(store galleryModel.Store, sessions *sessionHandler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		galleryHandler.New(store).RegisterRoutes(api)
	})

	if sessions != nil {
		sessions.RegisterRoutes(r)
	}

	return r
}
