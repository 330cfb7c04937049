package services

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Chat message roles on the coach loop's side of the boundary.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleTool      = "tool"
)

// ChatMessage is one entry of the conversation sent to the chat backend.
// Assistant entries may carry the tool calls the model issued; tool entries
// carry the result for one call, keyed by ToolCallID.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ChatToolCall
	ToolCallID string
}

// ChatToolCall is one model-requested tool invocation. Arguments is the raw
// JSON string exactly as the model produced it; parsing it is the loop's
// problem, not the transport's.
type ChatToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ChatToolSpec describes one tool offered to the model. Parameters is a
// JSON-schema object.
type ChatToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatTurn is one assistant turn: free text, tool calls, or both. A turn
// with neither means the backend had nothing to say.
type ChatTurn struct {
	Text      string
	ToolCalls []ChatToolCall
}

// ChatClient is the chat capability boundary. Transport failures come back
// as errors and are never converted into turns; an unconfigured backend
// reports ErrChatUnavailable.
type ChatClient interface {
	Complete(ctx context.Context, msgs []ChatMessage, tools []ChatToolSpec) (*ChatTurn, error)
}

const defaultChatModel = "gpt-4o-mini"

// OpenAIService implements ChatClient on the OpenAI chat completions API.
// Without OPENAI_API_KEY the service stays constructed but disabled, and
// every Complete call reports ErrChatUnavailable so callers can fall back.
type OpenAIService struct {
	client  openai.Client
	model   shared.ChatModel
	enabled bool
}

func NewOpenAIService() *OpenAIService {
	key := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIService{
		client:  openai.NewClient(option.WithAPIKey(key)),
		model:   shared.ChatModel(model),
		enabled: key != "",
	}
}

func (s *OpenAIService) Complete(ctx context.Context, msgs []ChatMessage, tools []ChatToolSpec) (*ChatTurn, error) {
	if !s.enabled {
		return nil, ErrChatUnavailable
	}

	params := openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: toOpenAIMessages(msgs),
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		// no reply available; an empty turn, not an error
		return &ChatTurn{}, nil
	}

	msg := completion.Choices[0].Message
	turn := &ChatTurn{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, ChatToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return turn, nil
}

func toOpenAIMessages(msgs []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case ChatRoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case ChatRoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			// An assistant turn that issued tool calls has to be replayed
			// with those calls attached or the API rejects the following
			// tool-result messages.
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case ChatRoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
