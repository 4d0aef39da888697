package lesson

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/lectern/internal/packet"
	"github.com/jackzampolin/lectern/internal/pdfsource"
)

// Scheduler runs fn once after d and returns a function that cancels it.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// AfterFunc schedules on the wall clock.
func AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Session pairs a Machine with the caption clock. While teaching, a timer
// fires Tick every CaptionIntervalMS; every transition re-arms or cancels it.
type Session struct {
	ID      string
	Created time.Time

	machine  *Machine
	schedule Scheduler
	logger   *slog.Logger

	// ctx bounds builds started by the clock; cancelled on Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stop     func()
	timerGen uint64
	closed   bool

	lastActive atomic.Int64
}

func newSession(id string, builder PacketBuilder, doc *pdfsource.Document, batchSize int, schedule Scheduler, logger *slog.Logger) *Session {
	if schedule == nil {
		schedule = AfterFunc
	}
	logger = logger.With("session", id)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		Created:  time.Now(),
		machine:  NewMachine(builder, doc, batchSize, logger),
		schedule: schedule,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.touch()
	return s
}

// Start begins the lesson at startPage and starts the caption clock.
func (s *Session) Start(ctx context.Context, credential string, startPage int) error {
	s.touch()
	err := s.machine.Start(ctx, credential, startPage)
	s.arm()
	return err
}

// NextBatch continues after a break.
func (s *Session) NextBatch(ctx context.Context, credential string) error {
	s.touch()
	err := s.machine.NextBatch(ctx, credential)
	s.arm()
	return err
}

// ForceStop returns to preview immediately.
func (s *Session) ForceStop() {
	s.touch()
	s.machine.ForceStop()
	s.arm()
}

// ReturnToPreview leaves a break for preview.
func (s *Session) ReturnToPreview() {
	s.touch()
	s.machine.ReturnToPreview()
	s.arm()
}

// Snapshot returns the lesson state.
func (s *Session) Snapshot() Snapshot {
	s.touch()
	return s.machine.Snapshot()
}

// Packet returns the current packet, or nil.
func (s *Session) Packet() *packet.Packet {
	s.touch()
	return s.machine.Packet()
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Close stops the clock and abandons any build.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.machine.ForceStop()
	s.cancel()
	s.arm()
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// arm cancels the pending tick and, while teaching, schedules the next one.
func (s *Session) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.timerGen++

	snap := s.machine.Snapshot()
	if s.closed || snap.Mode != ModeTeaching || snap.Building || !snap.HasPacket {
		return
	}

	gen := s.timerGen
	interval := time.Duration(snap.CaptionIntervalMS) * time.Millisecond
	s.stop = s.schedule(interval, func() { s.fire(gen) })
}

// fire runs one clock tick if the timer that scheduled it is still current.
func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	current := gen == s.timerGen && !s.closed
	s.mu.Unlock()
	if !current {
		return
	}

	s.touch()
	if err := s.machine.Tick(s.ctx); err != nil && s.ctx.Err() == nil {
		s.logger.Debug("tick", "error", err)
	}
	s.arm()
}
