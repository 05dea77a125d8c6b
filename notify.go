// FILE: notify.go
// Package main – outbound alerting.
//
// Slack is kept from the prior trader.go postSlack (best-effort
// webhook POST, errors ignored). Telegram is a SUPPLEMENT: the original
// Python bot drives python-telegram-bot plus a persisted bot-control
// JSON file (telegram_data/<market>.json, see
// original_source/models/helper/TelegramBotHelper.py) for interactive
// pause/resume commands; that control-loop surface is out of scope here
// (alerting, not remote control), so only the outbound half —
// posting a message via the Bot API's sendMessage endpoint — is ported,
// in the same no-SDK net/http POST shape as postSlack.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notifier sends a best-effort alert; send failures are never fatal to
// the caller and are never retried.
type Notifier interface {
	Notify(msg string)
}

// multiNotifier fans a message out to every configured channel.
type multiNotifier struct {
	notifiers []Notifier
}

func NewNotifier(cfg Config) Notifier {
	m := &multiNotifier{}
	if cfg.SlackWebhook != "" {
		m.notifiers = append(m.notifiers, &SlackNotifier{webhook: cfg.SlackWebhook})
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		m.notifiers = append(m.notifiers, &TelegramNotifier{
			token: cfg.TelegramBotToken, chatID: cfg.TelegramChatID,
			disableOnError: cfg.DisableTelegramErrorMsgs,
		})
	}
	return m
}

func (m *multiNotifier) Notify(msg string) {
	for _, n := range m.notifiers {
		n.Notify(msg)
	}
}

// SlackNotifier posts msg to a Slack incoming webhook. Kept from the
// teacher's postSlack: best-effort, 3s timeout, errors swallowed.
type SlackNotifier struct {
	webhook string
}

func (s *SlackNotifier) Notify(msg string) {
	if s.webhook == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	body := map[string]string{"text": msg}
	bs, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(bs))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	_, _ = http.DefaultClient.Do(req)
}

// TelegramNotifier posts msg via the Bot API's sendMessage endpoint.
// disableOnError mirrors the original bot's "disabletelegramerrormsgs"
// option: when set, messages starting with "ERR" are suppressed so a
// noisy retry storm never floods the chat.
type TelegramNotifier struct {
	token          string
	chatID         string
	disableOnError bool
}

func (t *TelegramNotifier) Notify(msg string) {
	if t.token == "" || t.chatID == "" {
		return
	}
	if t.disableOnError && len(msg) >= 3 && msg[:3] == "ERR" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	form := url.Values{"chat_id": {t.chatID}, "text": {msg}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, _ = http.DefaultClient.Do(req)
}
