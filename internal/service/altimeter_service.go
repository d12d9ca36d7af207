// internal/service/altimeter_service.go
package service

import (
	"sync"

	"go.uber.org/zap"

	"altimeter-service/internal/config"
	"altimeter-service/internal/serial"
	"altimeter-service/internal/session"
	"altimeter-service/internal/va500"
)

// AltimeterService is the supervisory surface over the altimeter session.
// It owns the currently accepted settings snapshot and funnels every update
// path (HTTP, config file watch) through the same validate-then-apply
// sequence.
type AltimeterService struct {
	mutex   sync.RWMutex
	current config.Settings
	session *session.Session
	logger  *zap.Logger
}

// NewAltimeterService creates the service with the initial settings snapshot
func NewAltimeterService(initial config.Settings, sess *session.Session, logger *zap.Logger) *AltimeterService {
	return &AltimeterService{
		current: initial,
		session: sess,
		logger:  logger.With(zap.String("component", "altimeter-service")),
	}
}

// Options returns the currently accepted option values keyed by their
// external names
func (s *AltimeterService) Options() map[string]interface{} {
	s.mutex.RLock()
	current := s.current
	s.mutex.RUnlock()

	return map[string]interface{}{
		config.OptionPortEnabled:  current.Enabled,
		config.OptionPortBaudrate: current.BaudRate,
		config.OptionPort:         current.PortPath,
	}
}

// Schema returns the option schema served to supervisory tooling
func (s *AltimeterService) Schema() config.OptionSchema {
	return config.Schema
}

// UpdateOptions validates a partial option update and, if it passes, applies
// the resulting snapshot to the session. On a ConfigError the previously
// accepted snapshot stays active.
func (s *AltimeterService) UpdateOptions(values map[string]interface{}) (config.Settings, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	next, err := s.current.Merge(values)
	if err != nil {
		s.logger.Warn("Rejected option update", zap.Any("values", values), zap.Error(err))
		return s.current, err
	}

	s.current = next
	s.session.Apply(next)
	return next, nil
}

// ApplySettings replaces the accepted snapshot wholesale. Used by the config
// file watcher, whose input has already been schema-validated.
func (s *AltimeterService) ApplySettings(settings config.Settings) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if settings == s.current {
		return
	}

	s.current = settings
	s.session.Apply(settings)
}

// Status returns the session status snapshot
func (s *AltimeterService) Status() session.Status {
	return s.session.Status()
}

// LatestReading returns the most recent range reading
func (s *AltimeterService) LatestReading() va500.Reading {
	return s.session.LatestReading()
}

// ListPorts enumerates serial ports on the host
func (s *AltimeterService) ListPorts() ([]string, error) {
	return serial.ListPorts()
}
