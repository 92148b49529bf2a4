package gallery

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/mstepanek/gallery-voice/backend/internal/model/gallery"
	"github.com/mstepanek/gallery-voice/backend/pkg/utils"
)

// Handler serves the dataset query endpoints.
type Handler struct {
	store gallery.Store
}

// New creates the gallery handler over the shared dataset store.
func New(store gallery.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the dataset routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/general/gallery", h.handleGalleryInfo)
	r.Get("/general/gothic", h.handleGothicInfo)
	r.Get("/sculptures", h.handleSearchSculptures)
	r.Get("/sculptures/{name}", h.handleGetSculpture)
}

func (h *Handler) handleGalleryInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := h.store.GalleryInfo()
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Gallery information not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleGothicInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := h.store.GothicStyleInfo()
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Gothic style information not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

// handleSearchSculptures always answers 200; no criteria or no matches both
// yield an empty array.
func (h *Handler) handleSearchSculptures(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	results := h.store.Search(gallery.SearchCriteria{
		Name:     query.Get("name"),
		Artist:   query.Get("artist"),
		Location: query.Get("location"),
		Year:     query.Get("year"),
	})
	if results == nil {
		results = []gallery.SculptureRecord{}
	}
	utils.RespondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleGetSculpture(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	record, ok := h.store.GetByName(name)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Sculpture not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, record)
}
