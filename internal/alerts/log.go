package alerts

import (
	"context"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/sirupsen/logrus"
)

// LogSender sends alerts to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Configured() bool { return true }

// Send logs the alert
func (s *LogSender) Send(ctx context.Context, alert *detector.Alert) error {
	s.log.WithFields(logrus.Fields{
		"level":          alert.AlertLevel,
		"score":          alert.Score,
		"wallet":         shortAddress(alert.Trade.ProxyWallet),
		"market":         alert.Trade.Title,
		"side":           alert.Trade.Side,
		"trade_value":    alert.TradeValue,
		"price_in_cents": alert.PriceInCents,
		"signals":        signalNames(alert.Signals),
		"tx_hash":        alert.Trade.TransactionHash,
	}).Info("Alert generated")
	return nil
}
