package alerts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

const pushoverDefaultURL = "https://api.pushover.net/1/messages.json"

// PushoverSender sends alerts to the Pushover mobile app
type PushoverSender struct {
	userKey    string
	apiToken   string
	endpoint   string
	httpClient *http.Client
}

// NewPushoverSender creates a new Pushover sender
func NewPushoverSender(userKey, apiToken string) *PushoverSender {
	return &PushoverSender{
		userKey:    userKey,
		apiToken:   apiToken,
		endpoint:   pushoverDefaultURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint overrides the messages endpoint
func (s *PushoverSender) WithEndpoint(url string) *PushoverSender {
	s.endpoint = url
	return s
}

func (s *PushoverSender) Name() string { return "pushover" }

func (s *PushoverSender) Configured() bool {
	return s.userKey != "" && s.apiToken != ""
}

func (s *PushoverSender) Help() string {
	return "Set PUSHOVER_USER_KEY and PUSHOVER_API_TOKEN"
}

type pushoverMessage struct {
	Token    string `json:"token"`
	User     string `json:"user"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
	Sound    string `json:"sound"`
	URL      string `json:"url"`
	URLTitle string `json:"url_title"`
}

// Send pushes the alert. CRITICAL alerts use high priority and the siren sound.
func (s *PushoverSender) Send(ctx context.Context, alert *detector.Alert) error {
	priority, sound := 0, "pushover"
	if alert.AlertLevel == detector.LevelCritical {
		priority, sound = 1, "siren"
	}

	msg := pushoverMessage{
		Token:    s.apiToken,
		User:     s.userKey,
		Title:    fmt.Sprintf("🚨 %s - Score %d", alert.AlertLevel, alert.Score),
		Message:  alertMessage(alert),
		Priority: priority,
		Sound:    sound,
		URL:      marketURL(alert.Trade),
		URLTitle: "View Market",
	}

	if err := postJSON(ctx, s.httpClient, s.endpoint, msg); err != nil {
		return fmt.Errorf("pushover: %w", err)
	}
	return nil
}
