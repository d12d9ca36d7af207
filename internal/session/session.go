// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"altimeter-service/internal/config"
	serialpkg "altimeter-service/internal/serial"
	"altimeter-service/internal/va500"
)

// State represents the connection state of the altimeter session
type State string

const (
	StateDisabled   State = "DISABLED"
	StateConnecting State = "CONNECTING"
	StateOpen       State = "OPEN"
	StateFailed     State = "FAILED"
)

// Status is a point-in-time snapshot of the session
type Status struct {
	State      State           `json:"state"`
	FailReason string          `json:"fail_reason,omitempty"`
	Settings   config.Settings `json:"settings"`
	Since      time.Time       `json:"since"`
}

// Link is the byte-stream abstraction the session drives. *serial.Link
// satisfies it; tests substitute a double.
type Link interface {
	ReadLine(timeout time.Duration) ([]byte, error)
	Write(data []byte) error
	Close() error
}

// LinkOpener opens a Link for the given port path and baud rate
type LinkOpener interface {
	OpenLink(path string, baudRate int) (Link, error)
}

// EventHandler receives session events. All callbacks run on the session
// worker goroutine and must not block.
type EventHandler interface {
	OnStateChanged(oldState, newState State, reason string)
	OnReading(reading va500.Reading)
}

// Timing holds the loop and retry intervals of the session
type Timing struct {
	ReadInterval time.Duration
	ReadTimeout  time.Duration
	BackoffMin   time.Duration
	BackoffMax   time.Duration
}

// Session translates applied settings into connection behavior against one
// serial-attached altimeter: open, periodic measurement reads, reconnect
// with bounded exponential backoff.
type Session struct {
	timing Timing
	opener LinkOpener
	logger *zap.Logger

	// pending is the single-slot cell for the latest applied settings.
	// The worker drains it at the start of each cycle, never mid-read.
	cellMu  sync.Mutex
	pending *config.Settings

	// kick wakes the worker out of an idle or backoff sleep
	kick chan struct{}

	statusMu     sync.RWMutex
	state        State
	failReason   string
	settings     config.Settings
	since        time.Time
	latest       va500.Reading
	eventHandler EventHandler

	link    Link
	backoff time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	// closeLink closes the active link from outside the worker, which is
	// guaranteed to unblock an in-flight read with a disconnect error
	linkMu sync.Mutex
}

// New creates a session with the given initial settings. The session does
// not touch the device until Start.
func New(initial config.Settings, timing Timing, opener LinkOpener, logger *zap.Logger) *Session {
	state := StateDisabled
	if initial.Enabled {
		state = StateConnecting
	}

	return &Session{
		timing:   timing,
		opener:   opener,
		logger:   logger.With(zap.String("component", "altimeter-session")),
		kick:     make(chan struct{}, 1),
		state:    state,
		settings: initial,
		since:    time.Now(),
		backoff:  timing.BackoffMin,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetEventHandler registers the event handler. Must be called before Start.
func (s *Session) SetEventHandler(handler EventHandler) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.eventHandler = handler
}

// Start launches the worker goroutine
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop shuts the session down: the active link, if any, is closed, which
// unblocks a read in flight; the worker then exits. Stop blocks until the
// worker is gone.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.closeActiveLink()
	})
	<-s.done
}

// Apply posts new settings into the latest-configuration cell. The worker
// picks them up at the start of its next cycle. The previous settings stay
// active until then; input validation has already happened in the config
// layer, so Apply never fails.
func (s *Session) Apply(settings config.Settings) {
	s.cellMu.Lock()
	s.pending = &settings
	s.cellMu.Unlock()

	// Wake the worker if it is sitting in a disabled or backoff sleep
	select {
	case s.kick <- struct{}{}:
	default:
	}

	s.logger.Info("Settings posted",
		zap.Bool(config.OptionPortEnabled, settings.Enabled),
		zap.Int(config.OptionPortBaudrate, settings.BaudRate),
		zap.String(config.OptionPort, settings.PortPath),
	)
}

// Status returns a snapshot of the session state
func (s *Session) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return Status{
		State:      s.state,
		FailReason: s.failReason,
		Settings:   s.settings,
		Since:      s.since,
	}
}

// LatestReading returns the most recent reading by value. Before the first
// decode cycle it returns a zero reading with Valid false.
func (s *Session) LatestReading() va500.Reading {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.latest
}

// run is the single worker driving the read loop
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.closeActiveLink()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		s.applyPending()

		switch s.currentState() {
		case StateDisabled:
			s.sleep(ctx, s.timing.ReadInterval)

		case StateConnecting:
			s.connect()

		case StateFailed:
			s.sleep(ctx, s.backoff)
			s.backoff = min(s.backoff*2, s.timing.BackoffMax)
			s.setState(StateConnecting, "")

		case StateOpen:
			start := time.Now()
			s.readCycle()
			if remaining := s.timing.ReadInterval - time.Since(start); remaining > 0 {
				s.sleep(ctx, remaining)
			}
		}
	}
}

// applyPending drains the settings cell and performs the resulting state
// transitions. A port or baud change while open forces a close-and-reopen
// cycle; parameters are never changed on a live handle.
func (s *Session) applyPending() {
	s.cellMu.Lock()
	next := s.pending
	s.pending = nil
	s.cellMu.Unlock()

	if next == nil {
		return
	}

	current := s.currentSettings()
	s.setSettings(*next)

	switch {
	case !next.Enabled:
		if s.currentState() != StateDisabled {
			s.closeActiveLink()
			s.setState(StateDisabled, "")
		}

	case s.currentState() == StateDisabled:
		s.backoff = s.timing.BackoffMin
		s.setState(StateConnecting, "")

	case s.currentState() == StateOpen && current.NeedsReopen(*next):
		s.closeActiveLink()
		s.backoff = s.timing.BackoffMin
		s.setState(StateConnecting, "")
	}
}

// connect attempts to open the link with the current settings
func (s *Session) connect() {
	settings := s.currentSettings()

	link, err := s.opener.OpenLink(settings.PortPath, settings.BaudRate)
	if err != nil {
		s.logger.Warn("Failed to open altimeter port",
			zap.String("port", settings.PortPath),
			zap.Int("baud_rate", settings.BaudRate),
			zap.Duration("retry_in", s.backoff),
			zap.Error(err),
		)
		s.setState(StateFailed, err.Error())
		return
	}

	s.linkMu.Lock()
	s.link = link
	s.linkMu.Unlock()

	s.backoff = s.timing.BackoffMin
	s.setState(StateOpen, "")
	s.logger.Info("Altimeter session open",
		zap.String("port", settings.PortPath),
		zap.Int("baud_rate", settings.BaudRate),
	)
}

// readCycle requests and decodes one measurement. Decode failures yield an
// invalid reading and leave the state open; I/O failures fail the session.
// Nothing is retried within the cycle, the backoff transition is the only
// retry path.
func (s *Session) readCycle() {
	link := s.activeLink()
	if link == nil {
		s.setState(StateFailed, serialpkg.ErrDisconnected.Error())
		return
	}

	cmd := va500.Command{ID: va500.MsgSingleMeasure}
	if err := link.Write(cmd.Serialize()); err != nil {
		s.failCycle(err)
		return
	}

	line, err := link.ReadLine(s.timing.ReadTimeout)
	if err != nil {
		s.failCycle(err)
		return
	}

	reading := va500.DecodeReading(line, time.Now())
	if !reading.Valid {
		s.logger.Debug("Malformed measurement frame", zap.ByteString("line", line))
	}
	s.publishReading(reading)
}

// failCycle closes the link and moves to the failed state
func (s *Session) failCycle(err error) {
	reason := err.Error()
	if errors.Is(err, serialpkg.ErrTimeout) {
		reason = serialpkg.ErrTimeout.Error()
	} else if errors.Is(err, serialpkg.ErrDisconnected) {
		reason = serialpkg.ErrDisconnected.Error()
	}

	s.logger.Warn("Altimeter I/O failure", zap.Error(err))
	s.closeActiveLink()
	s.setState(StateFailed, reason)
}

func (s *Session) closeActiveLink() {
	s.linkMu.Lock()
	link := s.link
	s.link = nil
	s.linkMu.Unlock()

	if link == nil {
		return
	}
	if err := link.Close(); err != nil {
		s.logger.Warn("Failed to close altimeter link", zap.Error(err))
	}
}

func (s *Session) activeLink() Link {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.link
}

func (s *Session) currentState() State {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.state
}

func (s *Session) currentSettings() config.Settings {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.settings
}

func (s *Session) setSettings(settings config.Settings) {
	s.statusMu.Lock()
	s.settings = settings
	s.statusMu.Unlock()
}

func (s *Session) setState(state State, reason string) {
	s.statusMu.Lock()
	old := s.state
	handler := s.eventHandler
	s.state = state
	s.failReason = reason
	s.since = time.Now()
	s.statusMu.Unlock()

	if old == state {
		return
	}

	s.logger.Info("Session state changed",
		zap.String("old_state", string(old)),
		zap.String("new_state", string(state)),
		zap.String("reason", reason),
	)

	if handler != nil {
		handler.OnStateChanged(old, state, reason)
	}
}

func (s *Session) publishReading(reading va500.Reading) {
	s.statusMu.Lock()
	s.latest = reading
	handler := s.eventHandler
	s.statusMu.Unlock()

	if handler != nil {
		handler.OnReading(reading)
	}
}

// sleep waits for d, a kick from Apply, or shutdown, whichever comes first
func (s *Session) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.kick:
	case <-s.stop:
	case <-ctx.Done():
	}
}

// serialOpener is the production LinkOpener backed by internal/serial
type serialOpener struct {
	logger *zap.Logger
}

// NewSerialOpener returns a LinkOpener that opens real serial devices
func NewSerialOpener(logger *zap.Logger) LinkOpener {
	return &serialOpener{logger: logger}
}

func (o *serialOpener) OpenLink(path string, baudRate int) (Link, error) {
	link, err := serialpkg.Open(path, baudRate, o.logger)
	if err != nil {
		return nil, fmt.Errorf("open altimeter link: %w", err)
	}
	return link, nil
}
