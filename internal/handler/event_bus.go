// internal/handler/event_bus.go
package handler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"altimeter-service/internal/session"
	"altimeter-service/internal/va500"
)

// Event types distributed on the bus
const (
	EventTypeReading = "reading"
	EventTypeState   = "state"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[string][]chan Event
	events      chan Event
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// Event represents a system event
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
		logger:      logger,
	}
}

// Start starts the event bus
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Publish publishes an event
func (eb *EventBus) Publish(event Event) {
	select {
	case eb.events <- event:
	default:
		// Event bus is full, log warning
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", event.Type),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event Event) {
	eb.mutex.RLock()
	subscribers := eb.subscribers[event.Type]
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// SessionEventAdapter bridges session events onto the bus and the WebSocket
// broadcast layer. It implements session.EventHandler.
type SessionEventAdapter struct {
	websocketHandler *WebSocketHandler
	eventBus         *EventBus
	logger           *zap.Logger
}

// NewSessionEventAdapter creates a new session event adapter
func NewSessionEventAdapter(websocketHandler *WebSocketHandler, eventBus *EventBus, logger *zap.Logger) *SessionEventAdapter {
	return &SessionEventAdapter{
		websocketHandler: websocketHandler,
		eventBus:         eventBus,
		logger:           logger,
	}
}

// OnStateChanged handles session state transitions
func (sea *SessionEventAdapter) OnStateChanged(oldState, newState session.State, reason string) {
	data := map[string]interface{}{
		"old_state": string(oldState),
		"new_state": string(newState),
	}
	if reason != "" {
		data["reason"] = reason
	}

	sea.eventBus.Publish(Event{
		Type:      EventTypeState,
		Source:    "altimeter-session",
		Data:      data,
		Timestamp: time.Now(),
	})
	sea.websocketHandler.BroadcastEvent(EventTypeState, data)

	sea.logger.Debug("Session state event broadcasted",
		zap.String("old_state", string(oldState)),
		zap.String("new_state", string(newState)),
	)
}

// OnReading handles decoded range readings
func (sea *SessionEventAdapter) OnReading(reading va500.Reading) {
	data := map[string]interface{}{
		"distance_meters": reading.DistanceMeters,
		"timestamp":       reading.Timestamp,
		"valid":           reading.Valid,
	}

	sea.eventBus.Publish(Event{
		Type:      EventTypeReading,
		Source:    "altimeter-session",
		Data:      data,
		Timestamp: time.Now(),
	})
	sea.websocketHandler.BroadcastReading(reading)
}
