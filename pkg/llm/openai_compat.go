package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/growup62/openapex/pkg/toolcall"
)

// callOpenAICompat speaks the generic chat-completion dialect shared by
// Groq, NVIDIA NIM, the HuggingFace router, Ollama and OpenRouter. Only
// the base URL and credential differ per family; the conversion between
// the neutral message format and the wire format is identical.
func callOpenAICompat(ctx context.Context, baseURL, apiKey, model string, messages []Message, tools []ToolSchema) (*Response, error) {
	// Failed candidates advance the chain; the SDK's built-in retry
	// would hit a broken provider repeatedly before giving up.
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: buildChatMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = buildChatTools(tools)
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	choices := make([]Choice, 0, len(completion.Choices))
	for _, ch := range completion.Choices {
		msg := Message{Role: "assistant", Content: ch.Message.Content}
		for _, tc := range ch.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, toolcall.Call{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		choices = append(choices, Choice{Message: msg})
	}
	return &Response{Choices: choices}, nil
}

func buildChatMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := []openai.ChatCompletionMessageParamUnion{}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "user":
			out = append(out, openai.UserMessage(msg.Content))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				// Assistant message with tool calls has no direct helper;
				// construct it and convert with ToParam.
				calls := []openai.ChatCompletionMessageToolCall{}
				for _, tc := range msg.ToolCalls {
					calls = append(calls, openai.ChatCompletionMessageToolCall{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					})
				}
				assistantMsg := openai.ChatCompletionMessage{
					Role:      "assistant",
					Content:   msg.Content,
					ToolCalls: calls,
				}
				out = append(out, assistantMsg.ToParam())
			} else {
				out = append(out, openai.AssistantMessage(msg.Content))
			}
		case "tool":
			out = append(out, openai.ToolMessage(msg.ToolCallID, msg.Content))
		}
	}
	return out
}

func buildChatTools(tools []ToolSchema) []openai.ChatCompletionToolParam {
	out := []openai.ChatCompletionToolParam{}
	for _, tool := range tools {
		var params map[string]interface{}
		if err := json.Unmarshal(tool.Parameters, &params); err != nil {
			continue
		}
		out = append(out, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(params),
			},
		})
	}
	return out
}

// recoverRejectedToolCall rescues the Groq-style tool_use_failed
// rejection: a 400 whose error body embeds the model's raw function-call
// text under failed_generation. The raw text is usually a perfectly
// usable tool invocation, so it is converted into a successful response
// instead of failing the fallback chain.
func recoverRejectedToolCall(err error) *Response {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return nil
	}

	raw := apiErr.RawJSON()
	var inner struct {
		Code             string `json:"code"`
		FailedGeneration string `json:"failed_generation"`
	}
	var wrapped struct {
		Error struct {
			Code             string `json:"code"`
			FailedGeneration string `json:"failed_generation"`
		} `json:"error"`
	}
	failed := ""
	if jsonErr := json.Unmarshal([]byte(raw), &inner); jsonErr == nil && inner.FailedGeneration != "" {
		failed = inner.FailedGeneration
	} else if jsonErr := json.Unmarshal([]byte(raw), &wrapped); jsonErr == nil {
		failed = wrapped.Error.FailedGeneration
	}
	if failed == "" {
		return nil
	}

	calls := toolcall.Extract(failed)
	if calls == nil {
		// Some rejections carry a bare {"name": ..., "arguments": ...}
		// object instead of the tag syntax.
		var direct struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if jsonErr := json.Unmarshal([]byte(failed), &direct); jsonErr != nil || direct.Name == "" {
			return nil
		}
		args := string(direct.Arguments)
		if args == "" {
			args = "{}"
		}
		calls = []toolcall.Call{{ID: toolcall.NewID(), Name: direct.Name, Arguments: args}}
	}

	return &Response{Choices: []Choice{{Message: Message{
		Role:      "assistant",
		ToolCalls: calls,
	}}}}
}
