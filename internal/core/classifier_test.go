package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/starfish-go/internal/providers"
)

// scriptedProvider returns canned replies and records requests.
type scriptedProvider struct {
	replies  []string
	err      error
	requests []providers.ChatRequest
}

func (p *scriptedProvider) Chat(_ context.Context, req providers.ChatRequest) (string, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", nil
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func TestClassifier_ParsesIntentJSON(t *testing.T) {
	p := &scriptedProvider{replies: []string{`{"intent":"bash","params":{"command":"ls -la"}}`}}
	c := &Classifier{Provider: p}

	result, err := c.Classify(context.Background(), "list the files")
	require.NoError(t, err)
	assert.Equal(t, "bash", result.Intent)
	assert.Equal(t, "ls -la", result.Params["command"])
	assert.False(t, result.Conversational())
}

func TestClassifier_StripsCodeFences(t *testing.T) {
	p := &scriptedProvider{replies: []string{"```json\n{\"intent\":\"websearch\",\"params\":{\"query\":\"go releases\"}}\n```"}}
	c := &Classifier{Provider: p}

	result, err := c.Classify(context.Background(), "what's new in go")
	require.NoError(t, err)
	assert.Equal(t, "websearch", result.Intent)
}

func TestClassifier_GarbageDegradesToResponse(t *testing.T) {
	p := &scriptedProvider{replies: []string{"I think the user wants to chat."}}
	c := &Classifier{Provider: p}

	result, err := c.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "response", result.Intent)
	assert.True(t, result.Conversational())
}

func TestClassifier_EmptyReplyDegradesToResponse(t *testing.T) {
	p := &scriptedProvider{replies: []string{""}}
	c := &Classifier{Provider: p}

	result, err := c.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "response", result.Intent)
}

func TestClassifier_UsesLowTemperature(t *testing.T) {
	p := &scriptedProvider{replies: []string{`{"intent":"response"}`}}
	c := &Classifier{Provider: p, Model: "some-model"}

	_, err := c.Classify(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, p.requests, 1)
	assert.Equal(t, "some-model", p.requests[0].Model)
	assert.InDelta(t, 0.1, p.requests[0].Temperature, 1e-9)
}
