package counselor

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	counselorModel "github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// Handler exposes counselor profile retrieval.
type Handler struct {
	profiles counselorModel.Store
}

// New creates a counselor handler backed by the supplied store.
func New(profiles counselorModel.Store) *Handler {
	return &Handler{profiles: profiles}
}

// RegisterRoutes wires the counselor routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/counselors", h.handleList)
	r.Get("/counselors/{counselorID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profiles.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profiles.FindByID(chi.URLParam(r, "counselorID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "counselor not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}
