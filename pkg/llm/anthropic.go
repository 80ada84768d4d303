package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/growup62/openapex/pkg/toolcall"
)

const anthropicMaxTokens = 4096

// callAnthropic converts the neutral conversation into the Messages API
// shape. The pinned system entry travels in the dedicated System field,
// tool results become tool_result user blocks.
func callAnthropic(ctx context.Context, baseURL, apiKey, model string, messages []Message, tools []ToolSchema) (*Response, error) {
	// One attempt per candidate; retrying is the fallback chain's job.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	systemPrompt := ""
	anthropicMessages := []anthropic.MessageParam{}
	for _, msg := range messages {
		switch {
		case msg.Role == "system":
			systemPrompt = msg.Content

		case msg.Role == "tool":
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))

		case msg.Role == "assistant" && len(msg.ToolCalls) > 0:
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})

		case msg.Role == "assistant":
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})

		case msg.Role == "user":
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  anthropicMessages,
		MaxTokens: anthropicMaxTokens,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = buildAnthropicTools(tools)
	}

	response, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	msg := Message{Role: "assistant"}
	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content += b.Text
		case anthropic.ToolUseBlock:
			msg.ToolCalls = append(msg.ToolCalls, toolcall.Call{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: b.JSON.Input.Raw(),
			})
		}
	}
	if msg.Content == "" && len(msg.ToolCalls) == 0 {
		return nil, fmt.Errorf("no content returned from anthropic")
	}

	return &Response{Choices: []Choice{{Message: msg}}}, nil
}

func buildAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := []anthropic.ToolUnionParam{}
	for _, tool := range tools {
		var schema map[string]interface{}
		if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
			continue
		}

		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
			},
		}
		if required, ok := schema["required"].([]interface{}); ok {
			names := make([]string, 0, len(required))
			for _, v := range required {
				if s, ok := v.(string); ok {
					names = append(names, s)
				}
			}
			toolParam.InputSchema.Required = names
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return out
}
