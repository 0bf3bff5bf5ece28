package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/events"
)

// ConnectionManager owns the WebSocket connections, indexed globally by
// connection ID and per room for broadcasts. It implements
// events.Broadcaster for the session engine.
type ConnectionManager struct {
	mu        sync.RWMutex
	conns     map[string]*Connection
	roomConns map[string]map[*Connection]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcastMessage

	// set by the Service before any connection is accepted
	onMessage func(*Connection, []byte)
	onClose   func(*Connection)
}

// Connection is one client's WebSocket connection.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Room is the code of the room this connection currently occupies;
	// empty until a create/join succeeds. Guarded by the manager's mutex.
	Room string

	ConnectedAt time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	room     string
	playerID string // if set, only this connection receives the event
	event    *events.Event
}

// DefaultConnectionConfig returns the default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024, // mistake lists carry full question texts
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns:     make(map[string]*Connection),
		roomConns: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start processes broadcast messages until the context ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection and
// starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[connection.ID] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("connection_id", connection.ID).Msg("WebSocket connection established")
	return connection, nil
}

// JoinRoom indexes a connection under a room code for broadcasts. A
// connection occupies at most one room; joining again moves it.
func (cm *ConnectionManager) JoinRoom(conn *Connection, code string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.Room != "" {
		cm.leaveRoomLocked(conn)
	}
	if cm.roomConns[code] == nil {
		cm.roomConns[code] = make(map[*Connection]bool)
	}
	cm.roomConns[code][conn] = true
	conn.Room = code
}

func (cm *ConnectionManager) leaveRoomLocked(conn *Connection) {
	if pool, ok := cm.roomConns[conn.Room]; ok {
		delete(pool, conn)
		if len(pool) == 0 {
			delete(cm.roomConns, conn.Room)
		}
	}
	conn.Room = ""
}

// unregister removes a connection from all indexes and closes its send
// channel; safe to call more than once.
func (cm *ConnectionManager) unregister(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.conns[conn.ID]; !ok {
		return false
	}
	delete(cm.conns, conn.ID)
	if conn.Room != "" {
		cm.leaveRoomLocked(conn)
	}
	close(conn.Send)
	log.Info().Str("connection_id", conn.ID).Msg("connection unregistered")
	return true
}

// BroadcastToRoom sends an event to every connection in a room.
func (cm *ConnectionManager) BroadcastToRoom(code string, evt *events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{room: code, event: evt}:
	default:
		log.Warn().Str("room", code).Msg("broadcast channel full, dropping message")
	}
}

// SendToPlayer sends an event to a single connection.
func (cm *ConnectionManager) SendToPlayer(playerID string, evt *events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{playerID: playerID, event: evt}:
	default:
		log.Warn().Str("player", playerID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if message.playerID != "" {
		if conn, ok := cm.conns[message.playerID]; ok {
			targets = append(targets, conn)
		}
	} else {
		for conn := range cm.roomConns[message.room] {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Connection is slow/dead, close it. The eviction is a
			// disconnect like any other; the engine has to hear about it
			// or the player lingers in their room as a ghost.
			log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
			if cm.unregister(conn) && cm.onClose != nil {
				cm.onClose(conn)
			}
			conn.Conn.Close()
		}
	}
}

// writePump sends queued messages and pings to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client commands until the connection drops, then tears
// the connection down exactly once.
func (c *Connection) readPump() {
	defer func() {
		if c.Manager.unregister(c) && c.Manager.onClose != nil {
			c.Manager.onClose(c)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}
		if c.Manager.onMessage != nil {
			c.Manager.onMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
