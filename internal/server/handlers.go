package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/liamashdown/insiderdetector/internal/alerts"
	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/metrics"
	"github.com/liamashdown/insiderdetector/internal/processor"
)

type levelSummary struct {
	Critical       int `json:"critical"`
	High           int `json:"high"`
	Medium         int `json:"medium"`
	SportsFiltered int `json:"sportsFiltered"`
}

type cronResponse struct {
	Success           bool                            `json:"success"`
	Timestamp         string                          `json:"timestamp"`
	TradesChecked     int                             `json:"tradesChecked"`
	AlertsGenerated   int                             `json:"alertsGenerated"`
	NotificationsSent int                             `json:"notificationsSent"`
	Notifications     []processor.NotificationOutcome `json:"notifications"`
	Summary           levelSummary                    `json:"summary"`
}

type dashboardStats struct {
	TradesAnalyzed  int `json:"tradesAnalyzed"`
	SportsFiltered  int `json:"sportsFiltered"`
	AlertsGenerated int `json:"alertsGenerated"`
	Critical        int `json:"critical"`
	High            int `json:"high"`
	Medium          int `json:"medium"`
}

type dashboardResponse struct {
	Alerts      []detector.Alert `json:"alerts"`
	Stats       dashboardStats   `json:"stats"`
	LastUpdated string           `json:"lastUpdated"`
}

type testNotificationResponse struct {
	Success    bool                   `json:"success"`
	Configured map[string]bool        `json:"configured"`
	Results    map[string]interface{} `json:"results"`
	Message    string                 `json:"message"`
	Help       map[string]string      `json:"help"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			metrics.RecordHealthCheck(false)
			s.log.WithError(err).Warn("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleAlerts serves the trailing-window analysis to the dashboard
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	report, err := s.runner.Dashboard(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Alerts API error")
		writeError(w, http.StatusInternalServerError, "Failed to fetch alerts", err)
		return
	}

	result := report.Result
	writeJSON(w, http.StatusOK, dashboardResponse{
		Alerts: report.Alerts,
		Stats: dashboardStats{
			TradesAnalyzed:  report.TradesChecked,
			SportsFiltered:  result.SportsFiltered,
			AlertsGenerated: len(result.Alerts),
			Critical:        result.CountByLevel(detector.LevelCritical),
			High:            result.CountByLevel(detector.LevelHigh),
			Medium:          result.CountByLevel(detector.LevelMedium),
		},
		LastUpdated: report.LastUpdated,
	})
}

// handleCron runs one poll. With CRON_SECRET set, a missing or wrong bearer
// token is rejected in production and only logged elsewhere.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if !s.cronAuthorized(r) {
		if s.cfg.IsProduction() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		s.log.Warn("Cron request without valid secret allowed outside production")
	}

	report, err := s.runner.ProcessTrades(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Cron error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
		return
	}

	result := report.Result
	writeJSON(w, http.StatusOK, cronResponse{
		Success:           true,
		Timestamp:         detector.FormatTimestamp(s.now().Unix()),
		TradesChecked:     report.TradesChecked,
		AlertsGenerated:   len(result.Alerts),
		NotificationsSent: len(report.Notifications),
		Notifications:     report.Notifications,
		Summary: levelSummary{
			Critical:       result.CountByLevel(detector.LevelCritical),
			High:           result.CountByLevel(detector.LevelHigh),
			Medium:         result.CountByLevel(detector.LevelMedium),
			SportsFiltered: result.SportsFiltered,
		},
	})
}

func (s *Server) cronAuthorized(r *http.Request) bool {
	if s.cfg.CronSecret == "" {
		return true
	}
	want := "Bearer " + s.cfg.CronSecret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// handleTestNotification pushes a fixed HIGH alert through every channel
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	senders := s.dispatcher.Senders()
	resp := testNotificationResponse{
		Configured: make(map[string]bool, len(senders)),
		Results:    make(map[string]interface{}, len(senders)),
		Help:       make(map[string]string, len(senders)),
	}

	anyConfigured := false
	for _, sender := range senders {
		configured := sender.Configured()
		resp.Configured[sender.Name()] = configured
		anyConfigured = anyConfigured || configured
		if h, ok := sender.(alerts.Helper); ok {
			resp.Help[sender.Name()] = h.Help()
		}
	}

	dispatched := s.dispatcher.Dispatch(r.Context(), testAlert(s.now().Unix()))
	for name, status := range dispatched.Channels {
		switch status {
		case alerts.StatusDelivered:
			resp.Results[name] = true
		case alerts.StatusFailed:
			resp.Results[name] = false
		default:
			resp.Results[name] = string(status)
		}
	}
	resp.Success = dispatched.Delivered

	switch {
	case !anyConfigured:
		resp.Message = "No notification services configured. Set the credentials for a channel listed in ALERT_MODE."
	case resp.Success:
		resp.Message = "Test notification sent! Check your phone/app."
	default:
		resp.Message = "Notification configured but failed to send. Check your tokens/IDs."
	}

	status := http.StatusOK
	if anyConfigured && !resp.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func testAlert(now int64) *detector.Alert {
	whale, cents := 5000.0, 7.5
	return &detector.Alert{
		Trade: detector.Trade{
			Title:       "🧪 TEST ALERT - Insider Detector Working!",
			Side:        detector.SideBuy,
			EventSlug:   "test-event",
			ProxyWallet: "0x1234567890abcdef",
			Price:       cents / 100,
			Size:        whale / (cents / 100),
			Timestamp:   now,
		},
		ScoreResult: detector.ScoreResult{
			Score:      85,
			AlertLevel: detector.LevelHigh,
			Signals: []detector.Signal{
				{Type: detector.SignalFreshWallet, Severity: detector.SeverityHigh},
				{Type: detector.SignalWhaleTrade, Severity: detector.SeverityHigh, Value: &whale},
				{Type: detector.SignalLowPriceEntry, Severity: detector.SeverityMedium, Value: &cents},
			},
			TradeValue:   whale,
			PriceInCents: cents,
		},
		Timestamp: detector.FormatTimestamp(now),
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	writeJSON(w, statusCode, map[string]string{
		"error":   message,
		"message": err.Error(),
	})
}
