// Package notifier tells operators when the catalog breaker trips or the
// cache goes away. Events travel over an in-process Bus to an Alerter, which
// renders them and fans out to email, Telegram and ntfy.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const sendTimeout = 10 * time.Second

var httpClient = &http.Client{Timeout: sendTimeout}

// Notifier delivers a rendered alert to one channel
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// checkResponse turns a non-2xx reply into an error carrying the start of the body
func checkResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// ===== EMAIL =====

type EmailNotifier struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       string
}

func (e *EmailNotifier) Name() string { return "email" }

// Notify sends a plain-text mail. net/smtp has no context support, so ctx is
// only checked before dialing.
func (e *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Title)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "X-Priority: %d\r\n", emailPriority(msg.Level))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")

	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}
	if err := smtp.SendMail(e.Host+":"+e.Port, auth, e.From, []string{e.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp %s: %w", e.Host, err)
	}
	return nil
}

func emailPriority(l Level) int {
	if l == LevelCritical {
		return 1
	}
	return 3
}

// ===== TELEGRAM =====

type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string // https://api.telegram.org when empty
}

type telegramMessage struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification"`
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify posts an HTML message; info alerts arrive silently
func (t *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	base := t.APIBase
	if base == "" {
		base = "https://api.telegram.org"
	}

	payload, err := json.Marshal(telegramMessage{
		ChatID:              t.ChatID,
		Text:                "<b>" + html.EscapeString(msg.Title) + "</b>\n\n" + html.EscapeString(msg.Body),
		ParseMode:           "HTML",
		DisableNotification: msg.Level == LevelInfo,
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	url := strings.TrimRight(base, "/") + "/bot" + t.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()
	return checkResponse("telegram", resp)
}

// ===== NTFY =====

type NtfyNotifier struct {
	Topic  string
	Server string // https://ntfy.sh when empty
}

var ntfyPriority = map[Level]string{
	LevelCritical: "urgent",
	LevelWarning:  "high",
	LevelInfo:     "default",
}

var ntfyTags = map[Level]string{
	LevelCritical: "rotating_light,musical_note",
	LevelWarning:  "warning,musical_note",
	LevelInfo:     "musical_note",
}

func (n *NtfyNotifier) Name() string { return "ntfy" }

func (n *NtfyNotifier) Notify(ctx context.Context, msg Message) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}

	url := strings.TrimRight(server, "/") + "/" + n.Topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(msg.Body))
	if err != nil {
		return err
	}
	req.Header.Set("Title", msg.Title)
	req.Header.Set("Priority", ntfyPriority[msg.Level])
	req.Header.Set("Tags", ntfyTags[msg.Level])

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: %w", err)
	}
	defer resp.Body.Close()
	return checkResponse("ntfy", resp)
}
