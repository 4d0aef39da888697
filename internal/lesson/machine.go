// Package lesson drives a lesson through its pages.
//
// A Machine walks one document in batches: preview → teaching → break, and
// back. Packet builds run outside the machine's lock with a cancellable
// context; a generation counter makes a stop or a newer build discard any
// result that arrives late.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackzampolin/lectern/internal/failure"
	"github.com/jackzampolin/lectern/internal/packet"
	"github.com/jackzampolin/lectern/internal/pdfsource"
)

// Mode is the lesson phase.
type Mode string

const (
	ModePreview  Mode = "preview"
	ModeTeaching Mode = "teaching"
	ModeBreak    Mode = "break"
)

// DefaultBatchSize is the number of pages taught before a break.
const DefaultBatchSize = 5

var (
	// ErrInvalidTransition is returned for an operation the current mode
	// does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrBusy is returned while a packet build is running.
	ErrBusy = errors.New("a page is being prepared")
	// ErrStopped is returned by an operation whose build was abandoned by a
	// stop or return to preview.
	ErrStopped = errors.New("lesson stopped")
)

// PacketBuilder builds the packet for one page.
type PacketBuilder interface {
	Build(ctx context.Context, req packet.Request) (*packet.Packet, error)
}

// Batch is a contiguous page range [Start, End].
type Batch struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of pages in the batch.
func (b Batch) Len() int {
	if b.End < b.Start {
		return 0
	}
	return b.End - b.Start + 1
}

// State is the lesson state of one session.
type State struct {
	Mode         Mode
	Document     *pdfsource.Document
	Batch        Batch
	CurrentPage  int
	CaptionIndex int
	Packet       *packet.Packet
	Building     bool
	Err          error
	UpdatedAt    time.Time

	credential string
}

// Snapshot is a read-only view of State for display.
type Snapshot struct {
	Mode              Mode                `json:"mode"`
	Document          *pdfsource.Document `json:"document,omitempty"`
	Batch             Batch               `json:"batch"`
	CurrentPage       int                 `json:"current_page"`
	CaptionIndex      int                 `json:"caption_index"`
	CaptionCount      int                 `json:"caption_count"`
	Caption           string              `json:"caption"`
	CaptionIntervalMS int                 `json:"caption_interval_ms"`
	DisplayText       string              `json:"display_text,omitempty"`
	DurationMS        int                 `json:"duration_ms"`
	HasPacket         bool                `json:"has_packet"`
	Building          bool                `json:"building"`
	HasCredential     bool                `json:"has_credential"`
	Error             string              `json:"error,omitempty"`
	ErrorKind         failure.Kind        `json:"error_kind,omitempty"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Machine is the lesson state machine for one session. It is safe for
// concurrent use.
type Machine struct {
	builder   PacketBuilder
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewMachine returns a machine in preview for doc.
func NewMachine(builder PacketBuilder, doc *pdfsource.Document, batchSize int, logger *slog.Logger) *Machine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		builder:   builder,
		batchSize: batchSize,
		logger:    logger,
		state: State{
			Mode:      ModePreview,
			Document:  doc,
			UpdatedAt: time.Now(),
		},
	}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Mode
}

// Packet returns the current packet, or nil.
func (m *Machine) Packet() *packet.Packet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Packet
}

// Snapshot returns a view of the state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	snap := Snapshot{
		Mode:          s.Mode,
		Document:      s.Document,
		Batch:         s.Batch,
		CurrentPage:   s.CurrentPage,
		CaptionIndex:  s.CaptionIndex,
		Building:      s.Building,
		HasCredential: s.credential != "",
		UpdatedAt:     s.UpdatedAt,
	}
	if p := s.Packet; p != nil {
		snap.HasPacket = true
		snap.CaptionCount = len(p.Captions)
		snap.CaptionIntervalMS = p.CaptionIntervalMS
		snap.DisplayText = p.DisplayText
		snap.DurationMS = p.DurationMS
		// While the next page is prepared the last caption stays up.
		snap.Caption = p.Caption(min(s.CaptionIndex, len(p.Captions)-1))
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
		snap.ErrorKind = failure.KindOf(s.Err)
	}
	return snap
}

// Start begins a lesson at startPage. The batch is
// [startPage, min(startPage+size-1, pageCount)]. On failure the machine
// stays in preview with the error recorded.
func (m *Machine) Start(ctx context.Context, credential string, startPage int) error {
	m.mu.Lock()
	if m.state.Mode != ModePreview {
		m.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, m.state.Mode)
	}
	if m.state.Building {
		m.mu.Unlock()
		return ErrBusy
	}
	if credential != "" {
		m.state.credential = credential
	}
	batch := m.batchFrom(startPage)
	req := m.request(batch, startPage)
	bctx, gen := m.beginBuild(ctx)
	m.mu.Unlock()

	p, err := m.builder.Build(bctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.endBuild(gen) {
		return ErrStopped
	}
	if err != nil {
		m.state.Err = err
		m.logger.Warn("lesson start failed", "page", startPage, "error", err)
		return err
	}

	m.state.Mode = ModeTeaching
	m.state.Batch = batch
	m.state.CurrentPage = startPage
	m.state.CaptionIndex = 0
	m.state.Packet = p
	m.state.Err = nil
	m.logger.Info("lesson started", "batch_start", batch.Start, "batch_end", batch.End)
	return nil
}

// Tick advances one caption. When the page's captions are exhausted it
// builds the next page of the batch, or enters break once the batch is done
// or the next page fails to build. A tick during a build is ignored.
func (m *Machine) Tick(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Mode != ModeTeaching {
		m.mu.Unlock()
		return fmt.Errorf("%w: tick in %s", ErrInvalidTransition, m.state.Mode)
	}
	if m.state.Building {
		m.mu.Unlock()
		return nil
	}

	m.state.CaptionIndex++
	m.state.UpdatedAt = time.Now()
	if m.state.Packet != nil && m.state.CaptionIndex < len(m.state.Packet.Captions) {
		m.mu.Unlock()
		return nil
	}

	next := m.state.CurrentPage + 1
	if batch := m.state.Batch; next > batch.End {
		m.state.Mode = ModeBreak
		m.state.Packet = nil
		m.state.CaptionIndex = 0
		m.mu.Unlock()
		m.logger.Info("batch complete", "batch_start", batch.Start, "batch_end", batch.End)
		return nil
	}

	req := m.request(m.state.Batch, next)
	bctx, gen := m.beginBuild(ctx)
	m.mu.Unlock()

	p, err := m.builder.Build(bctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.endBuild(gen) {
		return ErrStopped
	}
	if err != nil {
		m.state.Mode = ModeBreak
		m.state.Packet = nil
		m.state.CaptionIndex = 0
		m.state.Err = err
		m.logger.Warn("page build failed, taking a break", "page", next, "error", err)
		return err
	}

	m.state.Packet = p
	m.state.CurrentPage = next
	m.state.CaptionIndex = 0
	return nil
}

// NextBatch continues after a break with the following batch. With no pages
// left the machine returns to preview. On failure it stays in break.
func (m *Machine) NextBatch(ctx context.Context, credential string) error {
	m.mu.Lock()
	if m.state.Mode != ModeBreak {
		m.mu.Unlock()
		return fmt.Errorf("%w: next batch from %s", ErrInvalidTransition, m.state.Mode)
	}
	if m.state.Building {
		m.mu.Unlock()
		return ErrBusy
	}
	if credential != "" {
		m.state.credential = credential
	}

	start := m.state.Batch.End + 1
	if m.state.Document == nil || start > m.state.Document.PageCount {
		m.toPreview()
		m.mu.Unlock()
		m.logger.Info("document finished")
		return nil
	}

	batch := m.batchFrom(start)
	req := m.request(batch, start)
	bctx, gen := m.beginBuild(ctx)
	m.mu.Unlock()

	p, err := m.builder.Build(bctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.endBuild(gen) {
		return ErrStopped
	}
	if err != nil {
		m.state.Err = err
		m.logger.Warn("next batch failed", "page", start, "error", err)
		return err
	}

	m.state.Mode = ModeTeaching
	m.state.Batch = batch
	m.state.CurrentPage = start
	m.state.CaptionIndex = 0
	m.state.Packet = p
	m.state.Err = nil
	m.logger.Info("next batch started", "batch_start", batch.Start, "batch_end", batch.End)
	return nil
}

// ForceStop returns to preview from any mode, discarding the packet and
// cancelling a build in flight.
func (m *Machine) ForceStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toPreview()
}

// ReturnToPreview leaves a break for preview. Like ForceStop it is accepted
// in any mode.
func (m *Machine) ReturnToPreview() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toPreview()
}

// toPreview resets to preview. Caller holds m.mu.
func (m *Machine) toPreview() {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.Mode = ModePreview
	m.state.Packet = nil
	m.state.CaptionIndex = 0
	m.state.Building = false
	m.state.Err = nil
	m.state.UpdatedAt = time.Now()
}

// batchFrom returns the batch starting at start. Caller holds m.mu.
func (m *Machine) batchFrom(start int) Batch {
	end := start + m.batchSize - 1
	if m.state.Document != nil && end > m.state.Document.PageCount {
		end = m.state.Document.PageCount
	}
	return Batch{Start: start, End: end}
}

// request builds a packet request. Caller holds m.mu.
func (m *Machine) request(batch Batch, page int) packet.Request {
	return packet.Request{
		Credential: m.state.credential,
		Document:   m.state.Document,
		BatchStart: batch.Start,
		BatchEnd:   batch.End,
		Page:       page,
	}
}

// beginBuild marks a build as running and returns its context and
// generation. Caller holds m.mu.
func (m *Machine) beginBuild(ctx context.Context) (context.Context, uint64) {
	m.gen++
	bctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state.Building = true
	m.state.UpdatedAt = time.Now()
	return bctx, m.gen
}

// endBuild reports whether the build of generation gen is still current,
// and if so clears the building flag. Caller holds m.mu.
func (m *Machine) endBuild(gen uint64) bool {
	if gen != m.gen {
		return false
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.Building = false
	m.state.UpdatedAt = time.Now()
	return true
}
