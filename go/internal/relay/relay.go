// Package relay mirrors outbound room events onto NATS subjects so
// external consumers (dashboards, archivers) can follow live sessions
// without holding a WebSocket into the game server.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/events"
)

// Publisher publishes room events to arena.rooms.<code>.<type> subjects.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS with reconnect handling.
func Connect(url, prefix string) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc, prefix: prefix}, nil
}

// Publish mirrors one room event; failures are logged, the game never
// waits on the relay.
func (p *Publisher) Publish(code string, evt *events.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for relay")
		return
	}
	subject := fmt.Sprintf("%s.rooms.%s.%s", p.prefix, code, evt.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

func (p *Publisher) Close() {
	p.nc.Close()
}

// Tee wraps a Broadcaster and mirrors every room-addressed event to the
// relay. Private per-player events stay off the wire.
type Tee struct {
	Primary events.Broadcaster
	Relay   *Publisher
}

func (t Tee) BroadcastToRoom(code string, evt *events.Event) {
	t.Primary.BroadcastToRoom(code, evt)
	t.Relay.Publish(code, evt)
}

func (t Tee) SendToPlayer(playerID string, evt *events.Event) {
	t.Primary.SendToPlayer(playerID, evt)
}
