package alerts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

// DiscordSender sends alerts to Discord via webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *DiscordSender) Name() string { return "discord" }

func (s *DiscordSender) Configured() bool { return s.webhookURL != "" }

func (s *DiscordSender) Help() string { return "Set DISCORD_WEBHOOK_URL" }

// Send sends the alert to Discord
func (s *DiscordSender) Send(ctx context.Context, alert *detector.Alert) error {
	webhookPayload := map[string]interface{}{
		"embeds": []interface{}{s.buildEmbed(alert)},
	}

	if err := postJSON(ctx, s.httpClient, s.webhookURL, webhookPayload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (s *DiscordSender) buildEmbed(alert *detector.Alert) map[string]interface{} {
	var color int
	switch alert.AlertLevel {
	case detector.LevelCritical:
		color = 0xFF0000 // Red
	case detector.LevelHigh:
		color = 0xFFA500 // Orange
	default:
		color = 0xFFFF00 // Yellow
	}

	fields := []map[string]interface{}{
		{
			"name":   "Market",
			"value":  truncate(marketTitle(alert.Trade), 1024),
			"inline": false,
		},
		{
			"name":   "Side",
			"value":  alert.Trade.Side,
			"inline": true,
		},
		{
			"name":   "Value",
			"value":  formatUSD(alert.TradeValue),
			"inline": true,
		},
		{
			"name":   "Price",
			"value":  formatCents(alert.PriceInCents),
			"inline": true,
		},
		{
			"name":   "Signals",
			"value":  strings.Join(signalNames(alert.Signals), ", "),
			"inline": false,
		},
	}

	embed := map[string]interface{}{
		"title":  fmt.Sprintf("🚨 %s Alert - Score: %d", alert.AlertLevel, alert.Score),
		"url":    marketURL(alert.Trade),
		"color":  color,
		"fields": fields,
	}
	if alert.Timestamp != "" {
		embed["timestamp"] = alert.Timestamp
	}

	return embed
}
