package track

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"courierlog/internal/models"
)

var (
	// ErrNoActiveSession is returned when samples arrive outside a session.
	ErrNoActiveSession = errors.New("no active tracking session")
	// ErrSessionMismatch is returned for samples posted with a stale handle.
	ErrSessionMismatch = errors.New("sample for a different tracking session")
)

// Status is a snapshot of the manager's current session.
type Status struct {
	Active    bool      `json:"active"`
	SessionID string    `json:"sessionId,omitempty"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	TotalKm   float64   `json:"totalKm"`
}

// Manager owns at most one tracking session per process. Location samples
// arrive on the location provider's own goroutine; every state mutation goes
// through the manager's mutex.
type Manager struct {
	mu sync.Mutex

	window AcceptanceWindow

	sessionID string
	startedAt time.Time
	acc       *Accumulator
}

func NewManager(w AcceptanceWindow) *Manager {
	return &Manager{window: w}
}

// Start begins a fresh session and returns its handle. Starting while a
// session is already active is a no-op that returns the running session.
func (m *Manager) Start() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acc != nil {
		return m.statusLocked()
	}

	m.sessionID = uuid.NewString()
	m.startedAt = time.Now().UTC()
	m.acc = NewAccumulator(m.window)
	m.acc.Reset()
	return m.statusLocked()
}

// Stop ends the active session and returns its final total. Idempotent:
// stopping when nothing is active reports stopped=false and zero distance.
func (m *Manager) Stop() (finalKm float64, stopped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acc == nil {
		return 0, false
	}
	finalKm = m.acc.TotalKm()
	m.sessionID = ""
	m.startedAt = time.Time{}
	m.acc = nil
	return finalKm, true
}

// AddSample feeds one fix into the active session. sessionID guards against
// late samples from a previous session; pass the handle Start returned.
func (m *Manager) AddSample(sessionID string, s models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acc == nil {
		return ErrNoActiveSession
	}
	if sessionID != "" && sessionID != m.sessionID {
		return ErrSessionMismatch
	}
	m.acc.AddSample(s)
	return nil
}

// Current reports the live total; readable at any time, including save time.
func (m *Manager) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// CurrentKm is a convenience for the manual-save fallback.
func (m *Manager) CurrentKm() float64 {
	return m.Current().TotalKm
}

func (m *Manager) statusLocked() Status {
	if m.acc == nil {
		return Status{}
	}
	return Status{
		Active:    true,
		SessionID: m.sessionID,
		StartedAt: m.startedAt,
		TotalKm:   m.acc.TotalKm(),
	}
}
