package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/analysis/fusion"
	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	aiservice "github.com/linxiaoyu/mindhaven/backend/internal/service/ai"
	conversationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
)

// Handler 实时多通道情绪采集的WebSocket处理器。客户端在一个回合内陆续推送
// 各通道的观测帧，随后用 turn 帧结束回合；服务端融合全部观测并回复。
type Handler struct {
	aiService *aiservice.Service
	log       *conversationservice.Service
	selector  *adaptation.Selector
	text      sensing.Channel
	profiles  counselor.Store
	upgrader  websocket.Upgrader
}

// New 创建WebSocket处理器
func New(aiSvc *aiservice.Service, logSvc *conversationservice.Service, selector *adaptation.Selector, text sensing.Channel, profiles counselor.Store) *Handler {
	return &Handler{
		aiService: aiSvc,
		log:       logSvc,
		selector:  selector,
		text:      text,
		profiles:  profiles,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live/{sessionID}", h.handleLive)
}

type inboundFrame struct {
	Type        string                    `json:"type"`
	Source      emotion.Source            `json:"source,omitempty"`
	Values      map[emotion.Label]float64 `json:"values,omitempty"`
	Content     string                    `json:"content,omitempty"`
	CounselorID string                    `json:"counselorId,omitempty"`
}

type outgoingFrame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// turnState buffers the channel observations of the current turn.
type turnState struct {
	sessionID string
	actorID   string
	profile   counselor.Profile
	pending   []emotion.Observation
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	actorID, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	// Validate existence and ownership before upgrading.
	if _, err := h.log.Read(r.Context(), sessionID, actorID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	profiles := h.profiles.List()
	if len(profiles) == 0 {
		http.Error(w, "no counselor profile available", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[live] new connection for session=%s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &turnState{
		sessionID: sessionID,
		actorID:   actorID,
		profile:   profiles[0],
	}

	h.send(conn, sessionID, "connected", map[string]any{
		"counselor": state.profile.ID,
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[live] read failed: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch frame.Type {
		case "observation":
			h.bufferObservation(conn, state, frame)
		case "turn":
			h.completeTurn(ctx, conn, state, frame)
		default:
			h.send(conn, sessionID, "error", map[string]string{
				"error": "unknown frame type: " + frame.Type,
			})
		}
	}
}

// bufferObservation normalizes and holds one channel reading until the turn
// frame arrives.
func (h *Handler) bufferObservation(conn *websocket.Conn, state *turnState, frame inboundFrame) {
	if len(frame.Values) == 0 {
		h.send(conn, state.sessionID, "error", map[string]string{"error": "observation frame requires values"})
		return
	}

	obs := emotion.New(frame.Source, frame.Values)
	state.pending = append(state.pending, obs)
	h.send(conn, state.sessionID, "observation_buffered", map[string]any{
		"source":   obs.Source,
		"primary":  obs.Primary,
		"buffered": len(state.pending),
	})
}

// completeTurn fuses the buffered observations with the text channel reading,
// records the user turn and answers it.
func (h *Handler) completeTurn(ctx context.Context, conn *websocket.Conn, state *turnState, frame inboundFrame) {
	defer func() { state.pending = nil }()

	if frame.Content == "" {
		h.send(conn, state.sessionID, "error", map[string]string{"error": "turn frame requires content"})
		return
	}
	if frame.CounselorID != "" {
		if profile, ok := h.profiles.FindByID(frame.CounselorID); ok {
			state.profile = profile
		}
	}

	observations := append([]emotion.Observation(nil), state.pending...)
	if h.text != nil {
		obs, ok, err := h.text.Analyze(ctx, sensing.Input{Text: frame.Content})
		if err != nil {
			h.send(conn, state.sessionID, "error", map[string]string{"error": "sensing failed"})
			log.Printf("[live] text channel failed: %v", err)
			return
		}
		if ok {
			observations = append(observations, obs)
		}
	}

	var fused *emotion.Observation
	if len(observations) > 0 {
		combined, err := fusion.Fuse(observations...)
		if err != nil {
			h.send(conn, state.sessionID, "error", map[string]string{"error": err.Error()})
			return
		}
		fused = &combined
	}

	userMsg, err := h.log.Append(ctx, state.sessionID, state.actorID, therapy.RoleUser, frame.Content, fused)
	if err != nil {
		h.send(conn, state.sessionID, "error", map[string]string{"error": "failed to record turn"})
		log.Printf("[live] append user turn failed: %v", err)
		return
	}
	h.send(conn, state.sessionID, "user_message", userMsg)

	primary := emotion.Neutral
	if fused != nil {
		primary = fused.Primary
		h.send(conn, state.sessionID, "emotion", fused)
	}
	strategy := h.selector.Select(primary)

	replyContent := strategy.Reply
	if h.aiService != nil {
		history, err := h.log.Read(ctx, state.sessionID, state.actorID)
		if err == nil {
			if response, genErr := h.aiService.GenerateReply(ctx, state.sessionID, state.profile, history, frame.Content, strategy); genErr == nil {
				replyContent = response.Content
			} else {
				log.Printf("[live] reply generation failed, using canned reply: %v", genErr)
			}
		}
	}

	assistantMsg, err := h.log.Append(ctx, state.sessionID, state.actorID, therapy.RoleAssistant, replyContent, nil)
	if err != nil {
		h.send(conn, state.sessionID, "error", map[string]string{"error": "failed to record reply"})
		log.Printf("[live] append assistant turn failed: %v", err)
		return
	}

	h.send(conn, state.sessionID, "reply", map[string]any{
		"message":  assistantMsg,
		"strategy": strategy.Name,
	})
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, sessionID, frameType string, data interface{}) {
	frame := outgoingFrame{
		Type:      frameType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[live] marshal frame failed: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("[live] write frame failed: %v", err)
	}
}
