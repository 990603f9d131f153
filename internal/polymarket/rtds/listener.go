package rtds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// BatchHandler receives each flushed batch. Batches are delivered one at a
// time, in order, from a single goroutine.
type BatchHandler func(ctx context.Context, trades []detector.Trade)

// Config controls the stream connection
type Config struct {
	URL            string
	BufferSize     int
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	// Origin is sent on the handshake when set
	Origin string
}

// Listener keeps a subscription to the activity topic open, buffers trades
// and hands full buffers to the handler
type Listener struct {
	cfg     Config
	buffer  *Buffer
	handler BatchHandler
	log     *logrus.Logger
	now     func() time.Time

	batches chan []detector.Trade

	connMu sync.Mutex
	conn   *websocket.Conn

	// writeMu serializes writes; gorilla allows one concurrent writer
	writeMu sync.Mutex
}

// NewListener creates a stream listener
func NewListener(cfg Config, handler BatchHandler, log *logrus.Logger) *Listener {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Listener{
		cfg:     cfg,
		buffer:  NewBuffer(cfg.BufferSize),
		handler: handler,
		log:     log,
		now:     time.Now,
		batches: make(chan []detector.Trade, 4),
	}
}

// Run connects and reconnects until ctx is cancelled. Trades still buffered
// at shutdown are flushed to the handler before Run returns.
func (l *Listener) Run(ctx context.Context) error {
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		l.consume(ctx)
	}()

	for {
		err := l.session(ctx)
		if ctx.Err() != nil {
			break
		}
		l.log.WithError(err).WithField("delay", l.cfg.ReconnectDelay).Warn("Stream closed, reconnecting")
		metrics.RecordStreamReconnect()

		select {
		case <-ctx.Done():
		case <-time.After(l.cfg.ReconnectDelay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	if rest := l.buffer.Drain(); len(rest) > 0 {
		l.batches <- rest
	}
	close(l.batches)
	consumer.Wait()

	return ctx.Err()
}

// consume runs the handler for every batch. It keeps going after ctx is
// cancelled so the final drained batch is still processed.
func (l *Listener) consume(ctx context.Context) {
	for batch := range l.batches {
		metrics.RecordStreamFlush()
		l.handler(context.WithoutCancel(ctx), batch)
	}
}

// session runs one connection from dial to close
func (l *Listener) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	headers := http.Header{}
	if l.cfg.Origin != "" {
		headers.Set("Origin", l.cfg.Origin)
	}

	conn, resp, err := dialer.DialContext(ctx, l.cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
	metrics.SetStreamConnected(true)

	defer func() {
		l.connMu.Lock()
		l.conn = nil
		l.connMu.Unlock()
		conn.Close()
		metrics.SetStreamConnected(false)
	}()

	l.log.WithField("url", l.cfg.URL).Info("Connected to trade stream")

	if err := l.write(conn, websocket.TextMessage, []byte(`{"type":"subscribe","topic":"activity"}`)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	l.log.Info("Subscribed to activity feed")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go l.keepAlive(sessionCtx, conn)

	// Unblock ReadMessage when the caller cancels
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		l.handleMessage(raw)
	}
}

func (l *Listener) handleMessage(raw []byte) {
	trade, result, err := ParseMessage(raw, l.now())
	metrics.RecordStreamMessage(result)

	switch result {
	case ResultInvalid:
		l.log.WithError(err).Debug("Dropping stream message")
		return
	case ResultIgnored:
		return
	}

	// The consumer outlives ctx, so this send always completes. A slow
	// handler stalls reading instead of dropping trades.
	if batch := l.buffer.Push(trade); batch != nil {
		l.batches <- batch
	}
}

func (l *Listener) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.write(conn, websocket.PingMessage, nil); err != nil {
				l.log.WithError(err).Warn("Stream ping failed")
				conn.Close()
				return
			}
		}
	}
}

func (l *Listener) write(conn *websocket.Conn, messageType int, data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}

// Connected reports whether a stream connection is currently open
func (l *Listener) Connected() bool {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	return l.conn != nil
}
