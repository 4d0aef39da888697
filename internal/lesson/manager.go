package lesson

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/lectern/internal/pdfsource"
)

// ErrUnknownSession is returned for an id with no live session.
var ErrUnknownSession = errors.New("unknown session")

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	BatchSize   int
	IdleTimeout time.Duration // 0 disables reaping
	Scheduler   Scheduler     // nil uses the wall clock
}

// Manager holds independent sessions keyed by id.
type Manager struct {
	builder PacketBuilder
	logger  *slog.Logger

	mu       sync.RWMutex
	cfg      ManagerConfig
	sessions map[string]*Session
}

// SessionInfo summarizes a session for listings.
type SessionInfo struct {
	ID         string    `json:"id"`
	Document   string    `json:"document,omitempty"`
	Mode       Mode      `json:"mode"`
	Page       int       `json:"current_page"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"last_active"`
}

// NewManager creates a session manager.
func NewManager(builder PacketBuilder, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Manager{
		builder:  builder,
		logger:   logger,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Reconfigure changes batch size and idle timeout for new sessions and
// later reaps.
func (m *Manager) Reconfigure(batchSize int, idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if batchSize > 0 {
		m.cfg.BatchSize = batchSize
	}
	m.cfg.IdleTimeout = idle
}

// Create starts a session in preview for doc.
func (m *Manager) Create(doc *pdfsource.Document) *Session {
	id := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(id, m.builder, doc, m.cfg.BatchSize, m.cfg.Scheduler, m.logger)
	m.sessions[id] = s

	docID := ""
	if doc != nil {
		docID = doc.ID
	}
	m.logger.Info("session created", "session", id, "document", docID)
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// End closes and forgets the session with id.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	s.Close()
	m.logger.Info("session ended", "session", id)
	return nil
}

// List returns every live session, oldest first.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		snap := s.machine.Snapshot()
		info := SessionInfo{
			ID:         s.ID,
			Mode:       snap.Mode,
			Page:       snap.CurrentPage,
			Created:    s.Created,
			LastActive: s.LastActive(),
		}
		if snap.Document != nil {
			info.Document = snap.Document.ID
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Created.Before(infos[j].Created) })
	return infos
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap ends sessions idle longer than the idle timeout and returns how
// many were ended.
func (m *Manager) Reap(now time.Time) int {
	m.mu.Lock()
	idle := m.cfg.IdleTimeout
	if idle <= 0 {
		m.mu.Unlock()
		return 0
	}
	var stale []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > idle {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.logger.Info("session reaped", "session", s.ID, "idle", now.Sub(s.LastActive()).Round(time.Second))
	}
	return len(stale)
}

// Run reaps idle sessions every interval until ctx is done, then closes all
// sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case now := <-ticker.C:
			m.Reap(now)
		}
	}
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
