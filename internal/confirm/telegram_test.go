package confirm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dipbot/internal/logger"
)

// telegramAPI — поддельный Bot API: отдаёт заготовленные обновления
// и считает вызовы.
type telegramAPI struct {
	updates      string
	sentMessages int
}

func (a *telegramAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			a.sentMessages++
			fmt.Fprint(w, `{"ok":true}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			fmt.Fprint(w, a.updates)
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestTelegram(t *testing.T, api *telegramAPI) *Telegram {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	tg := NewTelegram("token", "42", 2*time.Second, logger.New(logger.Config{Level: "error"}))
	tg.apiBase = srv.URL
	tg.pollInterval = time.Millisecond
	return tg
}

func TestConfirmDisabledIsAutomatic(t *testing.T) {
	tg := NewTelegram("", "", time.Second, logger.New(logger.Config{Level: "error"}))
	if tg.Enabled() {
		t.Fatal("empty credentials must disable the confirmer")
	}
	if !tg.Confirm(context.Background(), "BUY SBER") {
		t.Error("disabled confirmer must auto-approve")
	}
}

func TestConfirmAcceptsReply(t *testing.T) {
	api := &telegramAPI{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":"Yes","chat":{"id":42}}}
	]}`}
	tg := newTestTelegram(t, api)

	if !tg.Confirm(context.Background(), "BUY SBER") {
		t.Error("yes reply must confirm")
	}
	if api.sentMessages != 1 {
		t.Errorf("sent %d prompts, want 1", api.sentMessages)
	}
	if tg.lastUpdateID != 7 {
		t.Errorf("offset = %d, want 7", tg.lastUpdateID)
	}
}

func TestConfirmRejectsReply(t *testing.T) {
	api := &telegramAPI{updates: `{"ok":true,"result":[
		{"update_id":8,"message":{"text":"no","chat":{"id":42}}}
	]}`}
	tg := newTestTelegram(t, api)

	if tg.Confirm(context.Background(), "BUY SBER") {
		t.Error("no reply must reject")
	}
}

func TestConfirmIgnoresForeignChat(t *testing.T) {
	api := &telegramAPI{updates: `{"ok":true,"result":[
		{"update_id":9,"message":{"text":"yes","chat":{"id":99}}}
	]}`}
	tg := newTestTelegram(t, api)
	tg.timeout = 50 * time.Millisecond

	if tg.Confirm(context.Background(), "BUY SBER") {
		t.Error("reply from a foreign chat must not confirm")
	}
}

func TestConfirmSilenceTimesOut(t *testing.T) {
	api := &telegramAPI{updates: `{"ok":true,"result":[]}`}
	tg := newTestTelegram(t, api)
	tg.timeout = 50 * time.Millisecond

	start := time.Now()
	if tg.Confirm(context.Background(), "BUY SBER") {
		t.Error("silence must reject")
	}
	if time.Since(start) > time.Second {
		t.Error("deadline must cut the poll loop short")
	}
}

func TestConfirmContextCancellation(t *testing.T) {
	api := &telegramAPI{updates: `{"ok":true,"result":[]}`}
	tg := newTestTelegram(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if tg.Confirm(ctx, "BUY SBER") {
		t.Error("cancelled context must reject")
	}
}
