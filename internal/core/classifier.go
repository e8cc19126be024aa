// Package core is the pipeline stage that turns loaded context into either a
// direct conversational reply or a detected intent for the action stage.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dayuer/starfish-go/internal/providers"
)

// intentDetectionSystem instructs the model to reply with strict JSON only.
const intentDetectionSystem = `You analyze the user message and determine their intent. Reply ONLY with a single JSON object, no other text.

INTENTS:
1. bash - User wants to run a terminal command. Params: {"command": "the shell command"}.
2. websearch - User wants to search the web for information. Params: {"query": "search query or URL"}.
3. write_file - User wants a file saved in the workspace. Params: {"filePath": "relative path", "content": "file content"}.
4. sessions_list - User asks which conversations are assigned to which agents. Params: {}.
5. sessions_send - User asks to delegate a task to another agent. Params: {"toAgentId": "agent id", "text": "the task"}.
6. execute_plan - User gives an ordered multi-step plan to run. Params: {"steps": ["step 1", "step 2"]}.
7. response - Normal conversation: greetings, thanks, questions, or when no other intent fits.

OUTPUT FORMAT (only this JSON, no markdown):
{"intent":"bash"|"websearch"|"write_file"|"sessions_list"|"sessions_send"|"execute_plan"|"response","params":{...}}`

// Classification is the model's verdict on one message.
type Classification struct {
	Intent string         `json:"intent"`
	Params map[string]any `json:"params"`
}

// Conversational reports whether the classification terminates in the core
// stage instead of being forwarded to the action stage.
func (c Classification) Conversational() bool {
	return c.Intent == "" || c.Intent == "response"
}

// Classifier wraps the provider call for intent detection.
type Classifier struct {
	Provider providers.LLMProvider
	Model    string
}

// Classify asks the model for the message's intent. Anything that does not
// parse as the expected JSON degrades to a conversational classification;
// a malformed model reply must not fail the pipeline.
func (c *Classifier) Classify(ctx context.Context, message string) (Classification, error) {
	raw, err := c.Provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: intentDetectionSystem},
			{Role: "user", Content: fmt.Sprintf("Message to analyze: %s\n\nReply with only the JSON object.", message)},
		},
		Model:       c.Model,
		MaxTokens:   300,
		Temperature: 0.1,
	})
	if err != nil {
		return Classification{}, err
	}

	raw = stripCodeFences(strings.TrimSpace(raw))
	if raw == "" {
		return Classification{Intent: "response"}, nil
	}

	var result Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Classification{Intent: "response"}, nil
	}
	if result.Intent == "" {
		result.Intent = "response"
	}
	return result, nil
}

// stripCodeFences removes a surrounding markdown code block, which some
// models add despite the prompt.
func stripCodeFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.SplitN(raw, "\n", 2)
	if len(lines) > 1 {
		raw = lines[1]
	}
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	return raw
}
