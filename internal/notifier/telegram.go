package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 中文说明：
// Telegram 通知器：开盘前推演完成后，将会话要点推送至指定群/频道。

const telegramAPIBase = "https://api.telegram.org"

type Telegram struct {
	botToken string
	chatID   string
	retries  int
	endpoint string
	client   *http.Client
}

func NewTelegram(botToken, chatID string, timeout time.Duration, retries int) *Telegram {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries <= 0 {
		retries = 3
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		retries:  retries,
		endpoint: telegramAPIBase,
		client:   &http.Client{Timeout: timeout},
	}
}

// SendText 发送文本消息，失败按次数上限重试。
func (t *Telegram) SendText(text string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram 配置不完整")
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.endpoint, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < t.retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * time.Second)
		}
		req, _ := http.NewRequest("POST", url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}
