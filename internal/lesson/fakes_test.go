package lesson

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackzampolin/lectern/internal/packet"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/testutil"
)

// fakeBuilder returns a packet with a fixed number of captions per page.
type fakeBuilder struct {
	captions int
	interval int

	mu       sync.Mutex
	pages    []int
	requests []packet.Request
	fail     map[int]error
	// block, when set, makes Build wait for ctx cancellation or a value.
	block chan struct{}
	// started receives the page of each build as it begins.
	started chan int
}

func newFakeBuilder(captions int) *fakeBuilder {
	return &fakeBuilder{captions: captions, interval: 300, fail: make(map[int]error)}
}

func (b *fakeBuilder) Build(ctx context.Context, req packet.Request) (*packet.Packet, error) {
	b.mu.Lock()
	b.pages = append(b.pages, req.Page)
	b.requests = append(b.requests, req)
	err := b.fail[req.Page]
	block := b.block
	started := b.started
	b.mu.Unlock()

	if started != nil {
		started <- req.Page
	}
	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if err != nil {
		return nil, err
	}
	if req.Page < 1 || req.Page > req.Document.PageCount {
		return nil, fmt.Errorf("page %d out of range", req.Page)
	}

	captions := make([]string, b.captions)
	for i := range captions {
		captions[i] = fmt.Sprintf("第%d頁第%d句。", req.Page, i+1)
	}
	return &packet.Packet{
		PageNumber:        req.Page,
		DisplayText:       fmt.Sprintf("page %d", req.Page),
		Captions:          captions,
		CaptionIntervalMS: b.interval,
		DurationMS:        b.interval * b.captions,
		BuiltAt:           time.Now(),
	}, nil
}

func (b *fakeBuilder) builtPages() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.pages...)
}

func (b *fakeBuilder) lastRequest() packet.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func testDoc(pages int) *pdfsource.Document {
	return &pdfsource.Document{ID: "1_1", Volume: "1", Chapter: "1", PageCount: pages}
}

func newTestMachine(b PacketBuilder, pages, batchSize int) *Machine {
	return NewMachine(b, testDoc(pages), batchSize, testutil.Logger())
}

// manualClock records scheduled ticks so tests fire them by hand.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

func (c *manualClock) schedule(d time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{d: d, fn: fn}
	c.pending = append(c.pending, t)
	return func() {
		c.mu.Lock()
		t.cancelled = true
		c.mu.Unlock()
	}
}

// active returns timers that have not been cancelled or fired.
func (c *manualClock) active() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.pending {
		if !t.cancelled {
			out = append(out, t)
		}
	}
	return out
}

// fireNext runs the most recent active timer and reports whether one ran.
func (c *manualClock) fireNext() bool {
	c.mu.Lock()
	var next *manualTimer
	for i := len(c.pending) - 1; i >= 0; i-- {
		if !c.pending[i].cancelled {
			next = c.pending[i]
			break
		}
	}
	if next != nil {
		next.cancelled = true
	}
	c.mu.Unlock()

	if next == nil {
		return false
	}
	next.fn()
	return true
}
