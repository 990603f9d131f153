package alerts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

const telegramDefaultBaseURL = "https://api.telegram.org"

// TelegramSender sends alerts through a Telegram bot
type TelegramSender struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegramSender creates a new Telegram sender
func NewTelegramSender(botToken, chatID string) *TelegramSender {
	return &TelegramSender{
		botToken:   botToken,
		chatID:     chatID,
		baseURL:    telegramDefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the Bot API base URL
func (s *TelegramSender) WithBaseURL(url string) *TelegramSender {
	s.baseURL = strings.TrimRight(url, "/")
	return s
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Configured() bool {
	return s.botToken != "" && s.chatID != ""
}

func (s *TelegramSender) Help() string {
	return "Set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID"
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send posts the alert as a Markdown message
func (s *TelegramSender) Send(ctx context.Context, alert *detector.Alert) error {
	msg := telegramMessage{
		ChatID:                s.chatID,
		Text:                  s.buildText(alert),
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	if err := postJSON(ctx, s.httpClient, url, msg); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

func (s *TelegramSender) buildText(alert *detector.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s ALERT* - Score: %d\n\n", levelEmoji(alert.AlertLevel), alert.AlertLevel, alert.Score)
	fmt.Fprintf(&b, "*Market:* %s\n", escapeMarkdown(marketTitle(alert.Trade)))
	fmt.Fprintf(&b, "*Side:* %s\n", alert.Trade.Side)
	fmt.Fprintf(&b, "*Value:* %s\n", formatUSD(alert.TradeValue))
	fmt.Fprintf(&b, "*Price:* %s\n\n", formatCents(alert.PriceInCents))
	b.WriteString("*Signals:*\n")
	for _, name := range signalNames(alert.Signals) {
		fmt.Fprintf(&b, "• %s\n", escapeMarkdown(name))
	}
	fmt.Fprintf(&b, "\n[View Market](%s)\n", marketURL(alert.Trade))
	fmt.Fprintf(&b, "[View Wallet](%s)", walletURL(alert.Trade))

	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// escapeMarkdown escapes free text for Telegram's legacy Markdown mode
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func levelEmoji(level detector.AlertLevel) string {
	switch level {
	case detector.LevelCritical:
		return "🔴"
	case detector.LevelHigh:
		return "🟠"
	default:
		return "🟡"
	}
}
