package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/liamashdown/insiderdetector/internal/alerts"
	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/polymarket/dataapi"
	"github.com/liamashdown/insiderdetector/internal/polymarket/gammaapi"
	"github.com/liamashdown/insiderdetector/internal/polymarket/rtds"
	"github.com/liamashdown/insiderdetector/internal/processor"
	"github.com/liamashdown/insiderdetector/internal/server"
	"github.com/liamashdown/insiderdetector/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting insiderdetector service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if !cfg.IsProduction() {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, keeping info")
	}

	log.WithFields(logrus.Fields{
		"environment":      cfg.Environment,
		"feed_mode":        cfg.FeedMode,
		"cursor_store":     cfg.CursorStore,
		"min_suspicious":   cfg.Detection.MinSuspiciousTradeUSD,
		"min_alert_score":  cfg.Detection.MinAlertScore,
		"notify_min_level": cfg.NotifyMinLevel,
		"wallet_lookup":    cfg.EnableWalletLookup,
		"alert_mode":       cfg.AlertMode,
		"cron_secret":      config.MaskSecret(cfg.CronSecret),
	}).Info("Configuration loaded")

	// Cursor store
	store, err := storage.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open state store")
	}
	defer store.Close()

	log.WithField("backend", cfg.CursorStore).Info("State store ready")

	// Initialize API clients
	dataClient := dataapi.NewClient(cfg)
	gammaClient := gammaapi.NewClient(cfg)

	// Notification channels
	senders, closers := createSenders(cfg, log)
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.WithError(err).Warn("Failed to close alert sender")
			}
		}
	}()
	dispatcher := alerts.NewDispatcher(cfg.NotifyTimeout, log, senders...)

	if !dispatcher.Configured() {
		log.Warn("No alert channel is configured; alerts will only be reported through the API")
	}

	// Detector
	detOpts := []detector.Option{detector.WithLogger(log)}
	if cfg.EnableWalletLookup {
		detOpts = append(detOpts, detector.WithWalletLookup(processor.NewDataAPIWallets(dataClient)))
	}
	det := detector.New(cfg.Detection, detOpts...)

	// Processor
	var procOpts []processor.Option
	if cfg.EnableMarketEnrichment {
		procOpts = append(procOpts, processor.WithEnricher(
			processor.NewMarketEnricher(gammaClient, cfg.Detection.MinSuspiciousTradeUSD, log),
		))
	}
	proc := processor.New(cfg, det, dataClient, dispatcher, store, log, procOpts...)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// HTTP server (dashboard, cron, health, metrics)
	srv := server.New(cfg, proc, dispatcher, store, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			log.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	switch cfg.FeedMode {
	case config.FeedModePoll:
		wg.Add(1)
		go func() {
			defer wg.Done()
			runPollLoop(ctx, proc, cfg.PollInterval(), log)
		}()

	case config.FeedModeStream:
		listener := rtds.NewListener(rtds.Config{
			URL:            cfg.StreamURL,
			BufferSize:     cfg.StreamBufferSize,
			ReconnectDelay: time.Duration(cfg.StreamReconnectSec) * time.Second,
			PingInterval:   time.Duration(cfg.StreamPingSec) * time.Second,
			Origin:         cfg.StreamOrigin,
		}, func(ctx context.Context, trades []detector.Trade) {
			proc.ProcessBatch(ctx, processor.SourceStream, trades)
		}, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.WithField("url", cfg.StreamURL).Info("Starting trade stream")
			listener.Run(ctx)
		}()

	default:
		log.Info("No built-in feed; waiting for /api/cron")
	}

	<-ctx.Done()
	log.Info("Received shutdown signal")

	wg.Wait()
	log.Info("Graceful shutdown complete")
}

func runPollLoop(ctx context.Context, proc *processor.Processor, interval time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval).Info("Starting trade polling loop")

	// Process immediately on startup
	if _, err := proc.ProcessTrades(ctx); err != nil {
		log.WithError(err).Error("Error processing trades")
	}

	for {
		select {
		case <-ticker.C:
			if _, err := proc.ProcessTrades(ctx); err != nil {
				log.WithError(err).Error("Error processing trades")
			}
		case <-ctx.Done():
			return
		}
	}
}

// createSenders builds one sender per ALERT_MODE entry. Channels without
// credentials are kept so they report not_configured instead of vanishing.
func createSenders(cfg *config.Config, log *logrus.Logger) ([]alerts.Sender, []func() error) {
	var (
		senders []alerts.Sender
		closers []func() error
	)

	for _, mode := range cfg.AlertModes() {
		switch mode {
		case "log":
			senders = append(senders, alerts.NewLogSender(log))
		case "pushover":
			senders = append(senders, alerts.NewPushoverSender(cfg.PushoverUserKey, cfg.PushoverAPIToken))
		case "telegram":
			senders = append(senders, alerts.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID))
		case "discord":
			senders = append(senders, alerts.NewDiscordSender(cfg.DiscordWebhookURL))
		case "smtp":
			senders = append(senders, alerts.NewSMTPSender(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUser,
				cfg.SMTPPassword,
				cfg.SMTPFrom,
				cfg.SMTPTo,
				cfg.Environment,
			))
		case "kafka":
			k := alerts.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
			senders = append(senders, k)
			closers = append(closers, k.Close)
		default:
			log.WithField("mode", mode).Warn("Unknown alert mode, skipping")
			continue
		}

		s := senders[len(senders)-1]
		log.WithFields(logrus.Fields{
			"channel":    s.Name(),
			"configured": s.Configured(),
		}).Info("Alert channel registered")
	}

	return senders, closers
}
