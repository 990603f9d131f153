package alerts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/stretchr/testify/assert"
)

type stubSender struct {
	name       string
	configured bool
	err        error
	delay      time.Duration
	calls      int32
}

func (s *stubSender) Name() string     { return s.name }
func (s *stubSender) Configured() bool { return s.configured }

func (s *stubSender) Send(ctx context.Context, _ *detector.Alert) error {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name            string
		senders         []*stubSender
		expectDelivered bool
		expectStatus    map[string]DeliveryStatus
	}{
		{
			name: "one success is enough",
			senders: []*stubSender{
				{name: "pushover", configured: true, err: errors.New("bad token")},
				{name: "telegram", configured: true},
				{name: "discord", configured: false},
			},
			expectDelivered: true,
			expectStatus: map[string]DeliveryStatus{
				"pushover": StatusFailed,
				"telegram": StatusDelivered,
				"discord":  StatusNotConfigured,
			},
		},
		{
			name: "all failed",
			senders: []*stubSender{
				{name: "pushover", configured: true, err: errors.New("down")},
				{name: "telegram", configured: true, err: errors.New("down")},
			},
			expectDelivered: false,
			expectStatus: map[string]DeliveryStatus{
				"pushover": StatusFailed,
				"telegram": StatusFailed,
			},
		},
		{
			name: "nothing configured",
			senders: []*stubSender{
				{name: "pushover"},
				{name: "telegram"},
			},
			expectDelivered: false,
			expectStatus: map[string]DeliveryStatus{
				"pushover": StatusNotConfigured,
				"telegram": StatusNotConfigured,
			},
		},
		{
			name:            "no senders",
			expectDelivered: false,
			expectStatus:    map[string]DeliveryStatus{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			senders := make([]Sender, 0, len(tt.senders))
			for _, s := range tt.senders {
				senders = append(senders, s)
			}
			d := NewDispatcher(time.Second, nil, senders...)

			res := d.Dispatch(context.Background(), sampleAlert(detector.LevelHigh))

			assert.Equal(t, tt.expectDelivered, res.Delivered)
			assert.Equal(t, tt.expectStatus, res.Channels)
			for _, s := range tt.senders {
				if !s.configured {
					assert.Zero(t, atomic.LoadInt32(&s.calls), "unconfigured %s was called", s.name)
				}
			}
		})
	}
}

func TestDispatchSlowChannelIsBounded(t *testing.T) {
	slow := &stubSender{name: "slow", configured: true, delay: 5 * time.Second}
	fast := &stubSender{name: "fast", configured: true}
	d := NewDispatcher(50*time.Millisecond, nil, slow, fast)

	start := time.Now()
	res := d.Dispatch(context.Background(), sampleAlert(detector.LevelCritical))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.Delivered)
	assert.Equal(t, StatusFailed, res.Channels["slow"])
	assert.Equal(t, StatusDelivered, res.Channels["fast"])
}

// blockingSender ignores ctx, like a client stuck in a blocking read
type blockingSender struct {
	release chan struct{}
}

func (s *blockingSender) Name() string     { return "blocking" }
func (s *blockingSender) Configured() bool { return true }

func (s *blockingSender) Send(context.Context, *detector.Alert) error {
	<-s.release
	return nil
}

func TestDispatchSenderIgnoringContextIsBounded(t *testing.T) {
	blocked := &blockingSender{release: make(chan struct{})}
	defer close(blocked.release)
	fast := &stubSender{name: "fast", configured: true}
	d := NewDispatcher(100*time.Millisecond, nil, blocked, fast)

	start := time.Now()
	res := d.Dispatch(context.Background(), sampleAlert(detector.LevelCritical))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.Delivered)
	assert.Equal(t, StatusFailed, res.Channels["blocking"])
	assert.Equal(t, StatusDelivered, res.Channels["fast"])
}

func TestDispatcherConfigured(t *testing.T) {
	assert.False(t, NewDispatcher(0, nil, &stubSender{name: "a"}).Configured())
	assert.True(t, NewDispatcher(0, nil, &stubSender{name: "a"}, &stubSender{name: "b", configured: true}).Configured())
}
