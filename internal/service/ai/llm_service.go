package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/linxiaoyu/mindhaven/backend/internal/adaptation"
	"github.com/linxiaoyu/mindhaven/backend/internal/config"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/counselor"
	"github.com/linxiaoyu/mindhaven/backend/internal/model/therapy"
)

// Service generates counselor replies with the configured chat model.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the reply generator: a prompt template and the chat
// model compiled into one chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled 指示是否开启 SSE 流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GenerateReply produces one assistant turn shaped by the counselor profile
// and the selected response strategy.
func (s *Service) GenerateReply(ctx context.Context, sessionID string, profile counselor.Profile, history []therapy.Message, userMessage string, strategy adaptation.Strategy) (*schema.Message, error) {
	input := s.buildChainInput(profile, history, userMessage, strategy)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run reply chain: %w", err)
	}

	log.Printf("[ai] generated reply for session=%s, counselor=%s, strategy=%s, length=%d",
		sessionID, profile.ID, strategy.Name, len(response.Content))
	return response, nil
}

// StreamReply streams reply chunks via the configured chain.
func (s *Service) StreamReply(ctx context.Context, profile counselor.Profile, history []therapy.Message, userMessage string, strategy adaptation.Strategy) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	input := s.buildChainInput(profile, history, userMessage, strategy)

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream reply chain output: %w", err)
	}

	return stream, nil
}

func (s *Service) buildChainInput(profile counselor.Profile, history []therapy.Message, userMessage string, strategy adaptation.Strategy) map[string]any {
	return map[string]any{
		"system":  BuildSystemPrompt(profile, strategy),
		"history": s.buildHistoryMessages(history),
		"query":   userMessage,
	}
}

func (s *Service) buildHistoryMessages(messages []therapy.Message) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case therapy.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case therapy.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
