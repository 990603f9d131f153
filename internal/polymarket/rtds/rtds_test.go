package rtds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFlushesAtCapacity(t *testing.T) {
	b := NewBuffer(5)

	for i := 0; i < 4; i++ {
		assert.Nil(t, b.Push(detector.Trade{Timestamp: int64(i)}))
	}
	batch := b.Push(detector.Trade{Timestamp: 4})
	require.Len(t, batch, 5)
	for i, tr := range batch {
		assert.Equal(t, int64(i), tr.Timestamp, "order preserved")
	}
	assert.Equal(t, 0, b.Len())

	assert.Nil(t, b.Drain())
	b.Push(detector.Trade{Timestamp: 9})
	assert.Len(t, b.Drain(), 1)
	assert.Equal(t, 0, b.Len())
}

func TestBufferConcurrentPushLosesNothing(t *testing.T) {
	b := NewBuffer(5)

	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 125; i++ {
				if batch := b.Push(detector.Trade{}); batch != nil {
					assert.Len(t, batch, 5)
					mu.Lock()
					total += len(batch)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	total += len(b.Drain())
	assert.Equal(t, 1000, total)
}

func TestParseMessage(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name        string
		raw         string
		expectRes   string
		expectTrade detector.Trade
	}{
		{
			name:      "trade with string numbers",
			raw:       `{"type":"activity","activity_type":"trade","data":{"market_title":"Will X?","event_slug":"will-x","side":"buy","size":"2000","price":"0.05","proxy_wallet":"0xabc","proxy_wallet_name":"alice","condition_id":"0xc1"}}`,
			expectRes: ResultTrade,
			expectTrade: detector.Trade{
				Title: "Will X?", Slug: "will-x", EventSlug: "will-x", Side: "BUY",
				Size: 2000, Price: 0.05, Timestamp: 1700000000,
				ProxyWallet: "0xabc", Name: "alice", ConditionID: "0xc1",
			},
		},
		{
			name:      "fallback fields and millisecond timestamp",
			raw:       `{"type":"activity","activity_type":"trade","data":{"title":"Market","slug":"m","size":10,"price":0.5,"user_address":"0xdef","user_name":"bob","timestamp":1699999999000}}`,
			expectRes: ResultTrade,
			expectTrade: detector.Trade{
				Title: "Market", Slug: "m", Side: "BUY",
				Size: 10, Price: 0.5, Timestamp: 1699999999,
				ProxyWallet: "0xdef", Name: "bob",
			},
		},
		{
			name:      "missing title becomes Unknown",
			raw:       `{"type":"activity","activity_type":"trade","data":{"side":"SELL","size":1,"price":0.2}}`,
			expectRes: ResultTrade,
			expectTrade: detector.Trade{
				Title: "Unknown", Side: "SELL", Size: 1, Price: 0.2, Timestamp: 1700000000,
			},
		},
		{
			name:      "zero size dropped",
			raw:       `{"type":"activity","activity_type":"trade","data":{"size":0,"price":0.2}}`,
			expectRes: ResultInvalid,
		},
		{
			name:      "missing price dropped",
			raw:       `{"type":"activity","activity_type":"trade","data":{"size":"5"}}`,
			expectRes: ResultInvalid,
		},
		{
			name:      "garbage price dropped",
			raw:       `{"type":"activity","activity_type":"trade","data":{"size":"5","price":"abc"}}`,
			expectRes: ResultInvalid,
		},
		{
			name:      "non trade activity ignored",
			raw:       `{"type":"activity","activity_type":"redeem","data":{}}`,
			expectRes: ResultIgnored,
		},
		{
			name:      "other message ignored",
			raw:       `{"type":"pong"}`,
			expectRes: ResultIgnored,
		},
		{
			name:      "not json",
			raw:       `hello`,
			expectRes: ResultInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade, res, err := ParseMessage([]byte(tt.raw), now)
			assert.Equal(t, tt.expectRes, res)
			if tt.expectRes == ResultInvalid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expectRes == ResultTrade {
				assert.Equal(t, tt.expectTrade, trade)
			}
		})
	}
}

func tradeFrame(i int) string {
	return fmt.Sprintf(`{"type":"activity","activity_type":"trade","data":{"market_title":"Market %d","size":"%d","price":"0.5","proxy_wallet":"0x%d"}}`, i, 100+i, i)
}

func TestListenerBuffersAndFlushesOnShutdown(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if !assert.NoError(t, err) {
			return
		}
		subscribed <- string(msg)

		frames := []string{
			tradeFrame(0), tradeFrame(1), `{"type":"heartbeat"}`, tradeFrame(2),
			tradeFrame(3), `{"type":"activity","activity_type":"trade","data":{"size":0}}`,
			tradeFrame(4), tradeFrame(5),
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	batches := make(chan []detector.Trade, 4)
	handler := func(_ context.Context, trades []detector.Trade) {
		batches <- trades
	}

	l := NewListener(Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		BufferSize:     5,
		ReconnectDelay: 50 * time.Millisecond,
		PingInterval:   time.Hour,
	}, handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case msg := <-subscribed:
		assert.JSONEq(t, `{"type":"subscribe","topic":"activity"}`, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no subscribe message")
	}

	select {
	case first := <-batches:
		require.Len(t, first, 5)
		assert.Equal(t, "Market 0", first[0].Title)
		assert.Equal(t, "Market 4", first[4].Title)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch flushed")
	}

	require.Eventually(t, func() bool { return l.buffer.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, l.Connected())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}

	select {
	case last := <-batches:
		require.Len(t, last, 1)
		assert.Equal(t, "Market 5", last[0].Title)
	default:
		t.Fatal("remaining trade was not flushed on shutdown")
	}
}

func TestListenerReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var (
		mu    sync.Mutex
		dials int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials++
		mu.Unlock()
		// Drop the connection right after the subscribe message
		conn.ReadMessage()
		conn.Close()
	}))
	defer srv.Close()

	l := NewListener(Config{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		BufferSize:     5,
		ReconnectDelay: 20 * time.Millisecond,
	}, func(context.Context, []detector.Trade) {}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestListenerOriginHeader(t *testing.T) {
	tests := []struct {
		name   string
		origin string
	}{
		{name: "omitted by default"},
		{name: "configured", origin: "https://polymarket.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan string, 1)
			upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case got <- r.Header.Get("Origin"):
				default:
				}
				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				defer conn.Close()
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						return
					}
				}
			}))
			defer srv.Close()

			l := NewListener(Config{
				URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
				BufferSize:     5,
				ReconnectDelay: 20 * time.Millisecond,
				Origin:         tt.origin,
			}, func(context.Context, []detector.Trade) {}, nil)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- l.Run(ctx) }()

			select {
			case origin := <-got:
				assert.Equal(t, tt.origin, origin)
			case <-time.After(5 * time.Second):
				t.Fatal("listener never dialed")
			}

			cancel()
			<-done
		})
	}
}
