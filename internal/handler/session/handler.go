package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	sessionservice "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// Handler 会话生命周期的HTTP处理器
type Handler struct {
	sessions *sessionservice.Service
}

// New 创建会话处理器
func New(sessions *sessionservice.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleOpen)
	r.Get("/sessions", h.handleList)
	r.Post("/sessions/{sessionID}/end", h.handleClose)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	opened, err := h.sessions.Open(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, opened)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sessions, err := h.sessions.List(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		Summary     string `json:"summary"`
		OverallMood string `json:"overallMood"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	closed, err := h.sessions.Close(r.Context(), chi.URLParam(r, "sessionID"), actorID, payload.Summary, payload.OverallMood)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, closed)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionservice.ErrSessionClosed):
		utils.RespondError(w, http.StatusConflict, "session already closed")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "operation failed")
	}
}
