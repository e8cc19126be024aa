package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToTelegramHTML_Empty(t *testing.T) {
	assert.Equal(t, "", MarkdownToTelegramHTML(""))
}

func TestMarkdownToTelegramHTML_Bold(t *testing.T) {
	assert.Equal(t, "<b>bold</b> text", MarkdownToTelegramHTML("**bold** text"))
	assert.Equal(t, "<b>bold</b> text", MarkdownToTelegramHTML("__bold__ text"))
}

func TestMarkdownToTelegramHTML_EscapesHTML(t *testing.T) {
	assert.Equal(t, "1 &lt; 2 &amp;&amp; 3 &gt; 2", MarkdownToTelegramHTML("1 < 2 && 3 > 2"))
}

func TestMarkdownToTelegramHTML_InlineCodeProtected(t *testing.T) {
	out := MarkdownToTelegramHTML("run `ls **all**` now")
	assert.Equal(t, "run <code>ls **all**</code> now", out)
}

func TestMarkdownToTelegramHTML_CodeBlock(t *testing.T) {
	out := MarkdownToTelegramHTML("```go\nfmt.Println(\"<hi>\")\n```")
	assert.Equal(t, "<pre><code>fmt.Println(\"&lt;hi&gt;\")\n</code></pre>", out)
}

func TestMarkdownToTelegramHTML_Links(t *testing.T) {
	out := MarkdownToTelegramHTML("[docs](https://go.dev)")
	assert.Equal(t, `<a href="https://go.dev">docs</a>`, out)
}

func TestMarkdownToTelegramHTML_HeadingsAndBullets(t *testing.T) {
	out := MarkdownToTelegramHTML("# Title\n- item one\n* item two")
	assert.Equal(t, "Title\n• item one\n• item two", out)
}
