// Package source delivers the external pipeline's notifications to
// subscribed handlers.
package source

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/framelab/exportprobe/core"
	"github.com/framelab/exportprobe/protocol"
)

// WebSocketSourceConfig holds WebSocket source configuration
type WebSocketSourceConfig struct {
	Conn      *websocket.Conn
	SessionID string
	Logger    zerolog.Logger
}

// WebSocketSource reads pipeline notifications from a WebSocket connection,
// converts them to core events, and dispatches each event to the handlers
// subscribed to its logical channel. Handlers run on the read loop's
// goroutine, in message order.
type WebSocketSource struct {
	config WebSocketSourceConfig

	mu       sync.Mutex
	handlers map[core.Channel][]func(core.Event)
}

// NewWebSocketSource creates a source reading from the given connection
func NewWebSocketSource(config WebSocketSourceConfig) *WebSocketSource {
	return &WebSocketSource{
		config:   config,
		handlers: make(map[core.Channel][]func(core.Event)),
	}
}

// Subscribe registers a handler for one logical channel. Subscribing after
// Run has started delivery is allowed; the handler sees subsequent events.
func (s *WebSocketSource) Subscribe(channel core.Channel, handler func(core.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[channel] = append(s.handlers[channel], handler)
}

// Run reads messages until the connection closes or the context is
// cancelled. A normal close returns nil; malformed messages are logged and
// skipped so one bad frame cannot wedge an export attempt.
func (s *WebSocketSource) Run(ctx context.Context) error {
	logger := s.config.Logger.With().Str("session_id", s.config.SessionID).Logger()
	logger.Info().Msg("starting pipeline event source")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("event source context cancelled")
			return ctx.Err()
		default:
		}

		_, data, err := s.config.Conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info().Msg("pipeline connection closed")
				return nil
			}
			logger.Error().Err(err).Msg("failed to read from pipeline connection")
			return err
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			logger.Warn().Err(err).Msg("skipping malformed pipeline message")
			continue
		}
		event, err := protocol.MessageToEvent(msg)
		if err != nil {
			logger.Warn().Err(err).Str("type", string(msg.Type)).Msg("skipping unconvertible pipeline message")
			continue
		}

		s.dispatch(event)
		logger.Debug().
			Str("type", string(event.EventType())).
			Str("channel", string(event.Channel())).
			Msg("dispatched pipeline event")
	}
}

func (s *WebSocketSource) dispatch(event core.Event) {
	s.mu.Lock()
	handlers := make([]func(core.Event), len(s.handlers[event.Channel()]))
	copy(handlers, s.handlers[event.Channel()])
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}
