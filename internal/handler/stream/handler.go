package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/analysis/fusion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	aiservice "github.com/linxiaoyu/mindhaven/backend/internal/service/ai"
	conversationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// Handler runs one full adaptive turn over Server-Sent Events: sense the
// user's emotional state, fuse it, log the turn, pick a strategy and stream
// the counselor's reply back.
type Handler struct {
	aiService *aiservice.Service
	log       *conversationservice.Service
	selector  *adaptation.Selector
	channels  []sensing.Channel
	profiles  counselor.Store
}

// New creates a stream handler. aiSvc may be nil; the selector's canned reply
// is used instead.
func New(aiSvc *aiservice.Service, log *conversationservice.Service, selector *adaptation.Selector, channels []sensing.Channel, profiles counselor.Store) *Handler {
	return &Handler{
		aiService: aiSvc,
		log:       log,
		selector:  selector,
		channels:  channels,
		profiles:  profiles,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest processes one adaptive turn for a session.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, actorID, counselorID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	profile, ok := h.profiles.FindByID(counselorID)
	if !ok {
		profiles := h.profiles.List()
		if len(profiles) == 0 {
			h.sendSSEError(w, flusher, "no counselor profile available")
			return fmt.Errorf("no counselor profile available")
		}
		profile = profiles[0]
	}

	// Ownership is checked here: a foreign session reads as not found.
	history, err := h.log.Read(ctx, sessionID, actorID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to load session: %v", err))
		return err
	}

	fused, err := h.senseTurn(ctx, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("sensing failed: %v", err))
		return err
	}

	userMsg, err := h.log.Append(ctx, sessionID, actorID, therapy.RoleUser, userMessage, fused)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to record user turn: %v", err))
		return err
	}
	history = append(history, userMsg)

	primary := emotion.Neutral
	confidence := 0.0
	if fused != nil {
		primary = fused.Primary
		confidence = fused.Confidence
	}
	strategy := h.selector.Select(primary)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Content:   profile.Name + " is replying",
	})

	replyContent, err := h.dispatchReply(ctx, w, flusher, sessionID, profile, history, userMessage, strategy)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("reply generation failed: %v", err))
		return err
	}

	if _, err := h.log.Append(ctx, sessionID, actorID, therapy.RoleAssistant, replyContent, nil); err != nil {
		log.Printf("[stream] failed to record assistant turn: %v", err)
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "emotion",
		SessionID: sessionID,
		Content:   fmt.Sprintf(`{"primaryEmotion":%q,"confidence":%.3f,"strategy":%q}`, primary, confidence, strategy.Name),
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed turn for session=%s, counselor=%s, strategy=%s", sessionID, profile.ID, strategy.Name)
	return nil
}

// senseTurn runs the sensing channels over the turn text and fuses whatever
// signals came back. No signal at all is a valid outcome, not an error.
func (h *Handler) senseTurn(ctx context.Context, userMessage string) (*emotion.Observation, error) {
	observations, err := sensing.Observe(ctx, h.channels, sensing.Input{Text: userMessage})
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, nil
	}

	fused, err := fusion.Fuse(observations...)
	if err != nil {
		return nil, err
	}
	return &fused, nil
}

func (h *Handler) dispatchReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, profile counselor.Profile, history []therapy.Message, userMessage string, strategy adaptation.Strategy) (string, error) {
	if h.aiService == nil {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   strategy.Reply,
		})
		return strategy.Reply, nil
	}

	if h.aiService.StreamingEnabled() {
		return h.streamReply(ctx, w, flusher, sessionID, profile, history, userMessage, strategy)
	}

	response, err := h.aiService.GenerateReply(ctx, sessionID, profile, history, userMessage, strategy)
	if err != nil {
		return "", err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})
	return response.Content, nil
}

func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, profile counselor.Profile, history []therapy.Message, userMessage string, strategy adaptation.Strategy) (string, error) {
	stream, err := h.aiService.StreamReply(ctx, profile, history, userMessage, strategy)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})
	return response.Content, nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
