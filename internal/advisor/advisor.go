package advisor

import (
	"context"
	"fmt"
	"log"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/service"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// ForecastQuerier provides the deterministic engine output the advisor
// narrates. The advisor never produces forecasts itself.
type ForecastQuerier interface {
	GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error)
	GetLevels(ctx context.Context, symbol string) (*service.LevelsReport, error)
	Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error)
}

// ConversationStore persists and retrieves conversation messages.
type ConversationStore interface {
	AppendMessage(ctx context.Context, chatID int64, role, content string) error
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error)
}

type AdvisorService struct {
	tracer     trace.Tracer
	llm        LLMClient
	forecasts  ForecastQuerier
	convStore  ConversationStore
	model      string
	maxHistory int
}

func NewAdvisorService(
	tracer trace.Tracer,
	llm LLMClient,
	forecasts ForecastQuerier,
	convStore ConversationStore,
	model string,
	maxHistory int,
) *AdvisorService {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &AdvisorService{
		tracer:     tracer,
		llm:        llm,
		forecasts:  forecasts,
		convStore:  convStore,
		model:      model,
		maxHistory: maxHistory,
	}
}

func (s *AdvisorService) Ask(ctx context.Context, chatID int64, userMessage string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ask")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID))

	// A nil store means stateless chat: no history, nothing persisted.
	if s.convStore != nil {
		if err := s.convStore.AppendMessage(ctx, chatID, "user", userMessage); err != nil {
			log.Printf("failed to store user message: %v", err)
		}
	}

	mentionedSymbols := ExtractSymbols(userMessage)

	engineContext, err := s.gatherContext(ctx, mentionedSymbols)
	if err != nil {
		log.Printf("failed to gather engine context: %v", err)
		engineContext = "Engine output temporarily unavailable."
	}

	systemPrompt := BuildSystemPrompt(engineContext)

	var history []domain.ConversationMessage
	if s.convStore != nil {
		history, err = s.convStore.RecentMessages(ctx, chatID, s.maxHistory)
		if err != nil {
			log.Printf("failed to load conversation history: %v", err)
			history = nil
		}
	}

	messages := s.buildMessages(systemPrompt, history)

	reply, err := s.callLLM(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}

	if s.convStore != nil {
		if err := s.convStore.AppendMessage(ctx, chatID, "assistant", reply); err != nil {
			log.Printf("failed to store assistant reply: %v", err)
		}
	}

	return reply, nil
}

// gatherContext pulls forecasts for the mentioned symbols, or every tracked
// instrument when the message names none.
func (s *AdvisorService) gatherContext(ctx context.Context, symbols []string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.gather-context")
	defer span.End()

	if len(symbols) == 0 {
		symbols = domain.SupportedSymbols
	}

	var forecasts []*domain.Forecast
	var stats []*domain.AccuracyStats
	for _, sym := range symbols {
		f, err := s.forecasts.GetForecast(ctx, sym)
		if err != nil {
			log.Printf("advisor context: forecast for %s: %v", sym, err)
			continue
		}
		forecasts = append(forecasts, f)
		if a, err := s.forecasts.Accuracy(ctx, sym, 30); err == nil {
			stats = append(stats, a)
		}
	}
	if len(forecasts) == 0 {
		return "", fmt.Errorf("no forecasts available")
	}

	return FormatEngineContext(forecasts, stats), nil
}

func (s *AdvisorService) buildMessages(
	systemPrompt string,
	history []domain.ConversationMessage,
) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)

	messages = append(messages, openai.SystemMessage(systemPrompt))

	for _, msg := range history {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	return messages
}

func (s *AdvisorService) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
