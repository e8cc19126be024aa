package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// TelegramAdapter connects a Telegram bot via long polling.
type TelegramAdapter struct {
	Token string

	botUser string
	client  *http.Client
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTelegramAdapter creates the adapter. The client timeout must exceed the
// long-poll window.
func NewTelegramAdapter(token string) *TelegramAdapter {
	return &TelegramAdapter{
		Token:  token,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *TelegramAdapter) Platform() string { return "telegram" }

// Start verifies the token and begins long polling in the background.
func (t *TelegramAdapter) Start(ctx context.Context, onMessage func(Incoming)) error {
	if t.Token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})

	info, err := t.apiCall("getMe", nil)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	if result, ok := info["result"].(map[string]any); ok {
		if username, ok := result["username"].(string); ok {
			t.botUser = username
			log.Printf("[Telegram] ✅ Bot @%s connected", username)
		}
	}

	go t.pollLoop(ctx, onMessage)
	return nil
}

func (t *TelegramAdapter) pollLoop(ctx context.Context, onMessage func(Incoming)) {
	defer close(t.done)
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := t.apiCall("getUpdates", map[string]any{
			"offset":          offset,
			"timeout":         30,
			"allowed_updates": []string{"message"},
		})
		if err != nil {
			log.Printf("[Telegram] ⚠️ getUpdates error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		results, _ := updates["result"].([]any)
		for _, u := range results {
			update, ok := u.(map[string]any)
			if !ok {
				continue
			}
			if uid, ok := update["update_id"].(float64); ok {
				offset = int(uid) + 1
			}
			if in, ok := t.decodeUpdate(update); ok {
				onMessage(in)
			}
		}
	}
}

// Stop ends the polling loop and waits for it to drain.
func (t *TelegramAdapter) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.done != nil {
		<-t.done
	}
	return nil
}

// Send delivers text as Telegram HTML, falling back to plain text when the
// converted markup is rejected.
func (t *TelegramAdapter) Send(chatID, text string) error {
	html := MarkdownToTelegramHTML(text)
	_, err := t.apiCall("sendMessage", map[string]any{
		"chat_id":    chatID,
		"text":       html,
		"parse_mode": "HTML",
	})
	if err != nil {
		_, err = t.apiCall("sendMessage", map[string]any{
			"chat_id": chatID,
			"text":    text,
		})
	}
	return err
}

func (t *TelegramAdapter) decodeUpdate(update map[string]any) (Incoming, bool) {
	msg, ok := update["message"].(map[string]any)
	if !ok {
		return Incoming{}, false
	}
	from, _ := msg["from"].(map[string]any)
	chat, _ := msg["chat"].(map[string]any)
	if from == nil || chat == nil {
		return Incoming{}, false
	}

	userID := fmt.Sprintf("%.0f", from["id"])
	if username, ok := from["username"].(string); ok && username != "" {
		userID = fmt.Sprintf("%s|%s", userID, username)
	}
	text, _ := msg["text"].(string)
	if text == "" {
		if caption, ok := msg["caption"].(string); ok {
			text = caption
		}
	}
	if text == "" {
		text = "[empty message]"
	}

	return Incoming{
		Platform: "telegram",
		UserID:   userID,
		ChatID:   fmt.Sprintf("%.0f", chat["id"]),
		Text:     text,
	}, true
}

func (t *TelegramAdapter) apiCall(method string, params map[string]any) (map[string]any, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", t.Token, method)
	body, _ := json.Marshal(params)
	req, _ := http.NewRequest("POST", url, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if ok, _ := result["ok"].(bool); !ok {
		desc, _ := result["description"].(string)
		return nil, fmt.Errorf("telegram %s: %s", method, desc)
	}
	return result, nil
}

var (
	codeBlockRe  = regexp.MustCompile("(?s)```[\\w]*\\n?([\\s\\S]*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	blockquoteRe = regexp.MustCompile(`(?m)^>\s*(.*)$`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__(.+?)__`)
	strikeRe     = regexp.MustCompile(`~~(.+?)~~`)
	bulletRe     = regexp.MustCompile(`(?m)^[-*]\s+`)
)

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

// MarkdownToTelegramHTML converts model markdown into the HTML subset
// Telegram accepts. Code spans are extracted first so their content survives
// the other rewrites untouched.
func MarkdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	var codeBlocks []string
	text = codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := codeBlockRe.FindStringSubmatch(m)
		if len(sub) > 1 {
			codeBlocks = append(codeBlocks, sub[1])
			return fmt.Sprintf("\x00CB%d\x00", len(codeBlocks)-1)
		}
		return m
	})

	var inlineCodes []string
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineCodeRe.FindStringSubmatch(m)
		if len(sub) > 1 {
			inlineCodes = append(inlineCodes, sub[1])
			return fmt.Sprintf("\x00IC%d\x00", len(inlineCodes)-1)
		}
		return m
	})

	text = headingRe.ReplaceAllString(text, "$1")
	text = blockquoteRe.ReplaceAllString(text, "$1")
	text = escapeHTML(text)
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = boldStarRe.ReplaceAllString(text, "<b>$1</b>")
	text = boldUnderRe.ReplaceAllString(text, "<b>$1</b>")
	text = strikeRe.ReplaceAllString(text, "<s>$1</s>")
	text = bulletRe.ReplaceAllString(text, "• ")

	for i, code := range inlineCodes {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00IC%d\x00", i), "<code>"+escapeHTML(code)+"</code>")
	}
	for i, code := range codeBlocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00CB%d\x00", i), "<pre><code>"+escapeHTML(code)+"</code></pre>")
	}
	return text
}
