// Package session runs rep-tracking sessions: it owns the frame loop that
// feeds a pose detector into an exercise counter and publishes snapshots.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/reptrack/internal/capture"
	"github.com/ayusman/reptrack/internal/detector"
	"github.com/ayusman/reptrack/internal/exercise"
	"github.com/ayusman/reptrack/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrSessionActive is returned when starting a session while another one is running.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoSession is returned when there is no session to stop or inspect.
	ErrNoSession = errors.New("no active session")
)

// Config holds configuration options for the session manager.
type Config struct {
	// Store persists sessions and reps. Optional.
	Store    *store.Store
	Detector detector.Detector
	Logger   *slog.Logger

	// Mirror flips frames horizontally before detection.
	Mirror bool
	// Scale downsizes frames before detection. Values outside (0, 1) disable it.
	Scale float64
	// MinVisibility drops landmarks below this confidence. 0 disables the gate.
	MinVisibility float64

	// MotionThreshold enables the motion gate for live sources when > 0.
	// It is the percentage of changed pixels that counts as motion.
	MotionThreshold float64
	// MotionHold keeps the gate open after the last motion.
	MotionHold time.Duration

	// FrameInterval overrides the pacing derived from the source FPS.
	FrameInterval time.Duration

	// Preview renders the overlay and keeps the latest JPEG for streaming.
	Preview bool
}

// Snapshot is an immutable view of a session after a processed frame.
type Snapshot struct {
	SessionID      string         `json:"session_id"`
	Exercise       exercise.Kind  `json:"exercise"`
	Source         string         `json:"source"`
	Count          int            `json:"count"`
	Stage          exercise.Stage `json:"stage"`
	Angle          float64        `json:"angle"`
	Measured       bool           `json:"measured"`
	Frames         int            `json:"frames"`
	DetectedFrames int            `json:"detected_frames"`
	StartedAt      time.Time      `json:"started_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Finished       bool           `json:"finished"`
}

// Manager starts and stops tracking sessions. At most one session runs at a time.
type Manager struct {
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewManager creates a new Manager with the given configuration.
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config: config,
		logger: logger,
	}
}

// Start opens src and begins counting kind on it.
// A finished session that was never stopped is replaced.
func (m *Manager) Start(kind exercise.Kind, src capture.Source) (*Session, error) {
	counter, err := exercise.NewCounter(kind)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("no frame source")
	}
	if m.config.Detector == nil {
		return nil, errors.New("no pose detector configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.Finished() {
		return nil, ErrSessionActive
	}

	if err := src.Open(); err != nil {
		return nil, fmt.Errorf("opening %s: %w", src, err)
	}

	sess := newSession(m.config, m.logger, counter, src)

	if st := m.config.Store; st != nil {
		rec := &store.Session{
			ID:        sess.ID,
			Exercise:  kind.String(),
			Source:    sess.Source,
			StartedAt: sess.StartedAt,
		}
		if err := st.Sessions().Create(rec); err != nil {
			src.Close()
			sess.release()
			return nil, fmt.Errorf("saving session: %w", err)
		}
		if err := st.Settings().Set(store.SettingLastExercise, kind.String()); err != nil {
			m.logger.Warn("failed to remember exercise", "error", err)
		}
	}

	m.current = sess
	go sess.run()

	m.logger.Info("session started",
		"id", sess.ID,
		"exercise", kind.String(),
		"source", sess.Source,
	)
	return sess, nil
}

// Stop ends the current session, waits for its frame loop to exit and
// returns the final snapshot.
func (m *Manager) Stop() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.current
	if sess == nil {
		return Snapshot{}, ErrNoSession
	}
	m.current = nil

	sess.stop()
	<-sess.Done()

	return sess.Snapshot(), nil
}

// Close stops any running session.
func (m *Manager) Close() {
	if _, err := m.Stop(); err != nil && !errors.Is(err, ErrNoSession) {
		m.logger.Warn("failed to stop session", "error", err)
	}
}

// Current returns the current session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Snapshot returns the latest snapshot of the current session.
func (m *Manager) Snapshot() (Snapshot, bool) {
	sess := m.Current()
	if sess == nil {
		return Snapshot{}, false
	}
	return sess.Snapshot(), true
}

// LatestJPEG returns the most recent annotated preview frame.
func (m *Manager) LatestJPEG() ([]byte, bool) {
	sess := m.Current()
	if sess == nil {
		return nil, false
	}
	return sess.LatestJPEG()
}

// Session is a single run of the frame loop over one source.
type Session struct {
	ID        string
	Kind      exercise.Kind
	Source    string
	StartedAt time.Time

	config  Config
	logger  *slog.Logger
	source  capture.Source
	counter *exercise.Counter
	gate    *capture.MotionGate

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	snapshot atomic.Pointer[Snapshot]
	jpeg     atomic.Pointer[[]byte]

	// owned by the frame loop
	frames   int
	detected int
	angle    float64
	measured bool
}

func newSession(config Config, logger *slog.Logger, counter *exercise.Counter, src capture.Source) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		Kind:      counter.Kind(),
		Source:    src.String(),
		StartedAt: time.Now(),
		config:    config,
		logger:    logger.With("session", id),
		source:    src,
		counter:   counter,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if config.MotionThreshold > 0 && src.Live() {
		s.gate = capture.NewMotionGate(config.MotionThreshold, config.MotionHold)
	}
	s.publish(false)
	return s
}

// Snapshot returns the most recently published snapshot.
func (s *Session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// LatestJPEG returns the last rendered preview frame, if any.
func (s *Session) LatestJPEG() ([]byte, bool) {
	buf := s.jpeg.Load()
	if buf == nil {
		return nil, false
	}
	return *buf, true
}

// Done is closed once the frame loop has exited and the session is saved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finished reports whether the frame loop has exited.
func (s *Session) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) release() {
	if s.gate != nil {
		s.gate.Close()
	}
}

func (s *Session) publish(finished bool) Snapshot {
	state := s.counter.State()
	snap := &Snapshot{
		SessionID:      s.ID,
		Exercise:       s.Kind,
		Source:         s.Source,
		Count:          state.Count,
		Stage:          state.Stage,
		Angle:          s.angle,
		Measured:       s.measured,
		Frames:         s.frames,
		DetectedFrames: s.detected,
		StartedAt:      s.StartedAt,
		UpdatedAt:      time.Now(),
		Finished:       finished,
	}
	s.snapshot.Store(snap)
	return *snap
}
