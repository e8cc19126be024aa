// Package convo gives the conversation id string convention a typed home.
// The wire format stays `<platform>_<chatId>`, `internal:session:<requestId>`
// or `scheduler:<name>`, but parsing happens once at the boundary instead of
// prefix checks scattered through the stages.
package convo

import (
	"fmt"
	"strings"
)

const (
	sessionPrefix   = "internal:session:"
	schedulerPrefix = "scheduler:"
)

// Kind discriminates the conversation id variants.
type Kind int

const (
	// KindPlatform is a normal chat thread: `<platform>_<chatId>`.
	KindPlatform Kind = iota
	// KindSession is a synthetic, single-use delegation conversation:
	// `internal:session:<requestId>`.
	KindSession
	// KindScheduler carries autonomous scheduler runs: `scheduler:<name>`.
	KindScheduler
)

// ID is a parsed conversation identifier.
type ID struct {
	Kind Kind

	// Platform and ChatID are set for KindPlatform.
	Platform string
	ChatID   string

	// RequestID is set for KindSession.
	RequestID string

	// Name is set for KindScheduler.
	Name string
}

// Platform builds a platform conversation id.
func Platform(platform, chatID string) ID {
	return ID{Kind: KindPlatform, Platform: platform, ChatID: chatID}
}

// Session builds the synthetic conversation id for one delegation request.
func Session(requestID string) ID {
	return ID{Kind: KindSession, RequestID: requestID}
}

// Scheduler builds the conversation id for an autonomous scheduler run.
func Scheduler(name string) ID {
	return ID{Kind: KindScheduler, Name: name}
}

// Parse decodes the wire form. Strings without a recognized shape are treated
// as platform conversations with an empty chat id rather than rejected, so an
// unknown id still routes somewhere visible.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("empty conversation id")
	}
	if rest, ok := strings.CutPrefix(s, sessionPrefix); ok {
		if rest == "" {
			return ID{}, fmt.Errorf("session conversation id missing request id: %q", s)
		}
		return Session(rest), nil
	}
	if rest, ok := strings.CutPrefix(s, schedulerPrefix); ok {
		return Scheduler(rest), nil
	}
	platform, chatID, found := strings.Cut(s, "_")
	if !found {
		return Platform(s, ""), nil
	}
	return Platform(platform, chatID), nil
}

// String renders the wire form.
func (id ID) String() string {
	switch id.Kind {
	case KindSession:
		return sessionPrefix + id.RequestID
	case KindScheduler:
		return schedulerPrefix + id.Name
	default:
		if id.ChatID == "" {
			return id.Platform
		}
		return id.Platform + "_" + id.ChatID
	}
}

// IsSession reports whether id is a delegation session conversation.
func (id ID) IsSession() bool { return id.Kind == KindSession }

// IsScheduler reports whether id belongs to an autonomous scheduler run.
func (id ID) IsScheduler() bool { return id.Kind == KindScheduler }
