package rtds

import (
	"sync"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

// Buffer collects streamed trades until it holds capacity of them. The
// swap-and-clear on flush happens under the same lock as Push, so a trade is
// never lost or handed out twice.
type Buffer struct {
	mu       sync.Mutex
	items    []detector.Trade
	capacity int
}

// NewBuffer creates a buffer that flushes at capacity trades
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		items:    make([]detector.Trade, 0, capacity),
		capacity: capacity,
	}
}

// Push adds a trade. When the buffer reaches capacity its contents are
// returned and the buffer is reset; otherwise Push returns nil.
func (b *Buffer) Push(t detector.Trade) []detector.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, t)
	if len(b.items) < b.capacity {
		return nil
	}
	return b.swapLocked()
}

// Drain returns whatever is buffered and resets the buffer
func (b *Buffer) Drain() []detector.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}
	return b.swapLocked()
}

// Len returns the number of buffered trades
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Buffer) swapLocked() []detector.Trade {
	batch := b.items
	b.items = make([]detector.Trade, 0, b.capacity)
	return batch
}
