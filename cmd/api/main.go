package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/config"
	"github.com/linxiaoyu/mindhaven/backend/internal/handler"
	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/sensing"
	"github.com/linxiaoyu/mindhaven/backend/internal/service/ai"
	conversationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/conversation"
	recommendationservice "github.com/linxiaoyu/mindhaven/backend/internal/service/recommendation"
	sessionservice "github.com/linxiaoyu/mindhaven/backend/internal/service/session"
	"github.com/linxiaoyu/mindhaven/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	tokens := identity.ParseTokenPairs(cfg.Auth.TokenPairs)
	if len(tokens) == 0 {
		log.Println("warning: AUTH_TOKENS is empty, no request will authenticate")
	}
	resolver := identity.NewStaticResolver(tokens)

	gateway := store.NewMemoryStore()
	profileStore := counselor.NewMemoryStore(counselor.Seed())

	sessionSvc := sessionservice.NewService(gateway)
	conversationSvc := conversationservice.NewService(gateway)
	recommendationSvc := recommendationservice.NewService(gateway)

	// Text sensing is always on; facial and voice observations arrive from
	// clients over the live channel instead.
	channels := []sensing.Channel{
		sensing.NewTextChannel(),
	}

	selector := adaptation.NewSelector(nil)

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with template replies only - 请检查 Ark 模型相关环境变量")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，回复将使用策略模板")
	}

	router := handler.NewRouter(handler.Deps{
		Profiles:        profileStore,
		Sessions:        sessionSvc,
		Conversation:    conversationSvc,
		Recommendations: recommendationSvc,
		AI:              aiService,
		Selector:        selector,
		Channels:        channels,
		Resolver:        resolver,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("MindHaven backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
