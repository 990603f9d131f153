package alerts

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DeliveryStatus is the outcome of one channel
type DeliveryStatus string

const (
	StatusDelivered     DeliveryStatus = "delivered"
	StatusFailed        DeliveryStatus = "failed"
	StatusNotConfigured DeliveryStatus = "not_configured"
)

// DispatchResult collects per-channel outcomes. Delivered is true when at
// least one channel accepted the alert.
type DispatchResult struct {
	Delivered bool
	Channels  map[string]DeliveryStatus
}

// Dispatcher fans one alert out to every sender concurrently
type Dispatcher struct {
	senders []Sender
	timeout time.Duration
	log     *logrus.Logger
}

// NewDispatcher creates a dispatcher. Each channel gets at most timeout to
// deliver; zero means no per-channel bound beyond the caller's context.
func NewDispatcher(timeout time.Duration, log *logrus.Logger, senders ...Sender) *Dispatcher {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Dispatcher{
		senders: senders,
		timeout: timeout,
		log:     log,
	}
}

// Senders returns the channels in registration order
func (d *Dispatcher) Senders() []Sender {
	return d.senders
}

// Configured reports whether any channel is configured
func (d *Dispatcher) Configured() bool {
	for _, s := range d.senders {
		if s.Configured() {
			return true
		}
	}
	return false
}

// Dispatch sends the alert to all channels and waits for every outcome.
// Failures are logged and reported, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *detector.Alert) DispatchResult {
	result := DispatchResult{Channels: make(map[string]DeliveryStatus, len(d.senders))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, sender := range d.senders {
		if !sender.Configured() {
			result.Channels[sender.Name()] = StatusNotConfigured
			metrics.RecordNotification(sender.Name(), string(StatusNotConfigured), 0)
			continue
		}

		wg.Add(1)
		go func(s Sender) {
			defer wg.Done()

			status := d.send(ctx, s, alert)

			mu.Lock()
			result.Channels[s.Name()] = status
			if status == StatusDelivered {
				result.Delivered = true
			}
			mu.Unlock()
		}(sender)
	}
	wg.Wait()

	return result
}

func (d *Dispatcher) send(ctx context.Context, s Sender, alert *detector.Alert) DeliveryStatus {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- s.Send(ctx, alert)
	}()

	// Senders that ignore ctx are abandoned once it expires
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("%s: %w", s.Name(), ctx.Err())
	}
	duration := time.Since(start)

	if err != nil {
		metrics.RecordNotification(s.Name(), string(StatusFailed), duration)
		d.log.WithError(err).WithFields(logrus.Fields{
			"channel": s.Name(),
			"market":  alert.Trade.Title,
			"level":   alert.AlertLevel,
		}).Warn("Notification failed")
		return StatusFailed
	}

	metrics.RecordNotification(s.Name(), string(StatusDelivered), duration)
	return StatusDelivered
}
