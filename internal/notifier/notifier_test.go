package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	t.Run("Full Message", func(t *testing.T) {
		msg := StructuredMessage{
			Icon:  "🌙",
			Title: "NSE Session Outlook",
			Sections: []MessageSection{
				{Title: "Overview", Lines: []string{"Direction: bullish", "", "Avg volatility: 0.45"}},
				{Title: "Risk", Lines: []string{"LOW - Favorable for trading"}},
			},
			Footer:    "run 42",
			Timestamp: time.Date(2026, time.August, 21, 8, 45, 0, 0, time.UTC),
		}
		text := msg.RenderMarkdown()
		assert.Contains(t, text, "🌙 NSE Session Outlook")
		assert.Contains(t, text, "```")
		assert.Contains(t, text, "- Direction: bullish")
		assert.Contains(t, text, "Risk")
		assert.Contains(t, text, "run 42")
		assert.Contains(t, text, "时间：2026-08-21")
		assert.NotContains(t, text, "- \n")
	})

	t.Run("Empty Sections Skip Code Block", func(t *testing.T) {
		msg := StructuredMessage{Title: "Ping", Sections: []MessageSection{{Title: "x", Lines: []string{" "}}}}
		assert.NotContains(t, msg.RenderMarkdown(), "```")
	})

	t.Run("Backticks Are Escaped", func(t *testing.T) {
		msg := StructuredMessage{Sections: []MessageSection{{Lines: []string{"code ``` fence"}}}}
		assert.Contains(t, msg.RenderMarkdown(), "'''")
	})
}

func TestTelegramSendText(t *testing.T) {
	t.Run("Posts Markdown Payload", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		tg := NewTelegram("token", "chat", time.Second, 1)
		tg.endpoint = srv.URL
		require.NoError(t, tg.SendText("hello"))
		assert.Equal(t, "chat", got["chat_id"])
		assert.Equal(t, "hello", got["text"])
		assert.Equal(t, "Markdown", got["parse_mode"])
	})

	t.Run("Rejects Incomplete Config", func(t *testing.T) {
		tg := NewTelegram("", "", time.Second, 1)
		assert.Error(t, tg.SendText("hello"))
	})

	t.Run("Reports Last Status On Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		tg := NewTelegram("token", "chat", time.Second, 1)
		tg.endpoint = srv.URL
		err := tg.SendText("hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}
