package recommendation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	recommendationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/recommendation"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// Handler 收藏推荐的HTTP处理器
type Handler struct {
	recommendations *recommendationservice.Service
}

// New 创建收藏推荐处理器
func New(recommendations *recommendationservice.Service) *Handler {
	return &Handler{recommendations: recommendations}
}

// RegisterRoutes 注册收藏推荐相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/recommendations", h.handleSave)
	r.Get("/recommendations", h.handleList)
	r.Delete("/recommendations/{recommendationID}", h.handleDelete)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		Type    string        `json:"type"`
		Content string        `json:"content"`
		Emotion emotion.Label `json:"emotion"`
		Tags    []string      `json:"tags"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	saved, err := h.recommendations.Save(r.Context(), actorID, payload.Type, payload.Content, payload.Emotion, payload.Tags)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	listed, err := h.recommendations.List(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, listed)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.recommendations.Delete(r.Context(), chi.URLParam(r, "recommendationID"), actorID); err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "recommendation not found")
	case errors.Is(err, recommendationservice.ErrContentRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "operation failed")
	}
}
