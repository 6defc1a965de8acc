package conversation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linxiaoyu/mindhaven/backend/internal/analysis/fusion"
	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	conversationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
	sessionservice "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// Handler 会话日志的HTTP处理器。用户回合会先经过感知通道与融合引擎，
// 再连同融合观测一并写入日志。
type Handler struct {
	log      *conversationservice.Service
	channels []sensing.Channel
}

// New 创建会话日志处理器
func New(log *conversationservice.Service, channels []sensing.Channel) *Handler {
	return &Handler{log: log, channels: channels}
}

// RegisterRoutes 注册会话日志相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/messages", h.handleAppend)
	r.Get("/sessions/{sessionID}/messages", h.handleRead)
	r.Get("/sessions/{sessionID}/emotions", h.handleSamples)
}

// observationPayload is a channel reading supplied by the client, e.g. from
// on-device facial or voice analysis.
type observationPayload struct {
	Source emotion.Source            `json:"source"`
	Values map[emotion.Label]float64 `json:"values"`
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		Role         therapy.Role         `json:"role"`
		Content      string               `json:"content"`
		Observations []observationPayload `json:"observations"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}
	if payload.Role == "" {
		payload.Role = therapy.RoleUser
	}

	var fused *emotion.Observation
	if payload.Role == therapy.RoleUser {
		observations := make([]emotion.Observation, 0, len(payload.Observations)+1)
		for _, op := range payload.Observations {
			observations = append(observations, emotion.New(op.Source, op.Values))
		}

		sensed, err := sensing.Observe(r.Context(), h.channels, sensing.Input{Text: payload.Content})
		if err != nil {
			respondServiceError(w, err)
			return
		}
		observations = append(observations, sensed...)

		if len(observations) > 0 {
			combined, err := fusion.Fuse(observations...)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			fused = &combined
		}
	}

	message, err := h.log.Append(r.Context(), chi.URLParam(r, "sessionID"), actorID, payload.Role, payload.Content, fused)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"message":     message,
		"observation": fused,
	})
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	messages, err := h.log.Read(r.Context(), chi.URLParam(r, "sessionID"), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleSamples(w http.ResponseWriter, r *http.Request) {
	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	samples, err := h.log.Samples(r.Context(), chi.URLParam(r, "sessionID"), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, samples)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionservice.ErrSessionClosed):
		utils.RespondError(w, http.StatusConflict, "session already closed")
	case errors.Is(err, fusion.ErrNoObservations):
		utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, conversationservice.ErrInvalidRole),
		errors.Is(err, conversationservice.ErrEmptyContent),
		errors.Is(err, conversationservice.ErrObservationRole):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "operation failed")
	}
}
