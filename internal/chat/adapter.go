// Package chat is the boundary stage: platform adapters feed user messages
// into the pipeline and the gateway delivers terminal events back out.
package chat

import "context"

// Incoming is one user message received from a platform adapter.
type Incoming struct {
	Platform string
	UserID   string
	ChatID   string
	Text     string
}

// Adapter connects one chat platform. Start blocks until the adapter is
// receiving; delivery of incoming messages happens via onMessage from the
// adapter's own goroutine.
type Adapter interface {
	Platform() string
	Start(ctx context.Context, onMessage func(Incoming)) error
	Send(chatID, text string) error
	Stop() error
}
