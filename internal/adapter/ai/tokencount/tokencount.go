// Package tokencount estimates prompt sizes so chat history can be trimmed
// before it is sent upstream.
//
// Gemini tokenisation is not public; cl100k_base via tiktoken-go is used as
// an approximation. When the encoding cannot be loaded the counter falls back
// to roughly four characters per token.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// perMessageOverhead approximates the role and framing tokens of one turn.
const perMessageOverhead = 4

// The BPE ranks ship embedded in the binary so counting never needs the network.
func init() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) }

// Counter provides thread-safe token counting.
type Counter struct {
	once    sync.Once
	enc     *tiktoken.Tiktoken
	loadErr error
	load    func() (*tiktoken.Tiktoken, error)
}

// NewCounter creates a counter that lazily loads the cl100k_base encoding.
func NewCounter() *Counter {
	return &Counter{load: func() (*tiktoken.Tiktoken, error) { return tiktoken.GetEncoding("cl100k_base") }}
}

func (c *Counter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		if c.load == nil {
			c.loadErr = errNoLoader
			return
		}
		c.enc, c.loadErr = c.load()
		if c.loadErr != nil {
			slog.Warn("token encoding unavailable, using character estimate", slog.Any("error", c.loadErr))
		}
	})
	return c.enc
}

// CountTokens returns the approximate token count of text.
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimate(text)
}

// CountMessage returns the cost of one chat turn including framing overhead.
func (c *Counter) CountMessage(m domain.ChatMessage) int {
	return perMessageOverhead + c.CountTokens(m.Text)
}

// TrimHistory keeps the most recent turns whose combined cost, plus
// reserved tokens for the system instruction and new message, fits budget.
// Order is preserved and the returned history never starts with a model
// turn, since the API expects conversations to open with the user.
// A non-positive budget disables trimming.
func (c *Counter) TrimHistory(history []domain.ChatMessage, reserved, budget int) []domain.ChatMessage {
	if budget <= 0 || len(history) == 0 {
		return history
	}
	remaining := budget - reserved
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := c.CountMessage(history[i])
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}
	for start < len(history) && history[start].Role != domain.RoleUser {
		start++
	}
	return history[start:]
}

func estimate(text string) int {
	n := len([]rune(text)) / 4
	if n == 0 {
		n = 1
	}
	return n
}

type loaderError string

func (e loaderError) Error() string { return string(e) }

const errNoLoader = loaderError("tokencount: no encoding loader")
