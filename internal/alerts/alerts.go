package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

// Sender delivers one alert to one notification channel
type Sender interface {
	// Name is the channel name used in ALERT_MODE and dispatch results
	Name() string
	// Configured reports whether the channel has the credentials it needs
	Configured() bool
	Send(ctx context.Context, alert *detector.Alert) error
}

// Helper is implemented by senders that can describe their setup
type Helper interface {
	Help() string
}

// postJSON posts payload to url and treats any 2xx as success
func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
