package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	conversationHandler "github.com/linxiaoyu/mindhaven/backend/internal/handler/conversation"
	counselorHandler "github.com/linxiaoyu/mindhaven/backend/internal/handler/counselor"
	liveHandler "github.com/linxiaoyu/mindhaven/backend/internal/handler/live"
	recommendationHandler "github.com/linxiaoyu/mindhaven/backend/internal/handler/recommendation"
	sessionHandler "github.com/linxiaoyu/mindhaven/backend/internal/handler/session"
	streamHandler "github.com/linxiaoyu/mindhaven/backend/internal/handler/stream"
	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	middlewarePkg "github.com/linxiaoyu/mindhaven/backend/internal/middleware"
	counselorModel "github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/emotion"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	aiService "github.com/linxiaoyu/mindhaven/backend/internal/service/ai"
	conversationService "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
	recommendationService "github.com/linxiaoyu/mindhaven/backend/internal/service/recommendation"
	sessionService "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Profiles        counselorModel.Store
	Sessions        *sessionService.Service
	Conversation    *conversationService.Service
	Recommendations *recommendationService.Service
	AI              *aiService.Service
	Selector        *adaptation.Selector
	Channels        []sensing.Channel
	Resolver        identity.Resolver
}

// NewRouter wires HTTP routes to core services. Every route under /api
// requires a resolvable identity; the acting user id travels in the request
// context and is passed explicitly into each service call.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	stream := streamHandler.New(deps.AI, deps.Conversation, deps.Selector, deps.Channels, deps.Profiles)

	var textChannel sensing.Channel
	for _, channel := range deps.Channels {
		if channel.Source() == emotion.SourceText {
			textChannel = channel
			break
		}
	}
	live := liveHandler.New(deps.AI, deps.Conversation, deps.Selector, textChannel, deps.Profiles)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.RequireIdentity(deps.Resolver))

		counselorHandler.New(deps.Profiles).RegisterRoutes(api)
		sessionHandler.New(deps.Sessions).RegisterRoutes(api)
		conversationHandler.New(deps.Conversation, deps.Channels).RegisterRoutes(api)
		recommendationHandler.New(deps.Recommendations).RegisterRoutes(api)
		live.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")
			counselorID := r.URL.Query().Get("counselor")

			actorID, ok := identity.FromContext(r.Context())
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := stream.HandleStreamRequest(r.Context(), w, sessionID, actorID, counselorID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
