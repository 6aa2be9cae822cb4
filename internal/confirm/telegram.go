package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dipbot/internal/logger"
)

// Confirmer — канал подтверждения ордера перед отправкой брокеру.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Telegram ждёт текстовое подтверждение в чате: yes/y/ok/confirm — да,
// no/n/cancel — нет. Молчание до дедлайна — нет. Без настроенного бота
// подтверждение автоматическое.
type Telegram struct {
	apiBase      string
	botToken     string
	chatID       string
	timeout      time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
	log          *logger.Logger
	lastUpdateID int64
}

func NewTelegram(botToken, chatID string, timeout time.Duration, log *logger.Logger) *Telegram {
	return &Telegram{
		apiBase:      "https://api.telegram.org",
		botToken:     botToken,
		chatID:       chatID,
		timeout:      timeout,
		pollInterval: time.Second,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

func (t *Telegram) Enabled() bool {
	return t.botToken != "" && t.chatID != ""
}

func (t *Telegram) Confirm(ctx context.Context, prompt string) bool {
	if !t.Enabled() {
		return true
	}

	t.sendMessage(ctx, fmt.Sprintf("%s\n\nОтветьте `yes` в течение %d секунд.", prompt, int(t.timeout.Seconds())))

	deadline := time.Now().Add(t.timeout)
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(t.pollInterval):
		}

		for _, text := range t.getUpdates(ctx) {
			switch strings.ToLower(strings.TrimSpace(text)) {
			case "y", "yes", "ok", "confirm":
				return true
			case "n", "no", "cancel":
				return false
			}
		}

		if time.Now().After(deadline) {
			return false
		}
	}
}

func (t *Telegram) api(method string) string {
	return t.apiBase + "/bot" + t.botToken + "/" + method
}

func (t *Telegram) sendMessage(ctx context.Context, text string) {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.api("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.WithComponent("telegram").WithError(err).Warn("Не удалось отправить сообщение.")
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
}

type updatesResponse struct {
	OK     bool `json:"ok"`
	Result []struct {
		UpdateID int64 `json:"update_id"`
		Message  *struct {
			Text string `json:"text"`
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"result"`
}

// getUpdates возвращает тексты новых сообщений нужного чата и сдвигает
// offset, чтобы не перечитывать старые обновления.
func (t *Telegram) getUpdates(ctx context.Context) []string {
	urlStr := t.api("getUpdates")
	if t.lastUpdateID > 0 {
		urlStr += "?" + url.Values{"offset": {fmt.Sprint(t.lastUpdateID + 1)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.WithComponent("telegram").WithError(err).Warn("Не удалось получить обновления.")
		return nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}

	var body updatesResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}

	var texts []string
	for _, u := range body.Result {
		if u.UpdateID > t.lastUpdateID {
			t.lastUpdateID = u.UpdateID
		}
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		if fmt.Sprint(u.Message.Chat.ID) != t.chatID {
			continue
		}
		texts = append(texts, u.Message.Text)
	}
	return texts
}

// Auto — безусловное подтверждение (для dry-run и тестов).
type Auto struct{}

func (Auto) Confirm(context.Context, string) bool { return true }
