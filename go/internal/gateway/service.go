package gateway

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/events"
	"github.com/mertyk/kpss-arena/go/internal/question"
	"github.com/mertyk/kpss-arena/go/internal/reports"
)

// Service ties the WebSocket transport to the session engine: it upgrades
// connections, greets them with the corpus inventory, routes their commands,
// and reports disconnects.
type Service struct {
	cm      *ConnectionManager
	engine  Engine
	store   *question.Store
	reports *reports.Recorder
}

// NewService wires the gateway.
func NewService(cm *ConnectionManager, engine Engine, store *question.Store, recorder *reports.Recorder) *Service {
	s := &Service{
		cm:      cm,
		engine:  engine,
		store:   store,
		reports: recorder,
	}
	cm.onMessage = s.handleCommand
	cm.onClose = func(conn *Connection) {
		s.engine.Disconnect(conn.ID)
	}
	return s
}

// RegisterRoutes mounts the WebSocket endpoint and the liveness probe.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Pong! Sunucu tüm sistemleriyle aktif ve çalışıyor."))
	})
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.cm.UpgradeConnection(w, r)
	if err != nil {
		return
	}
	s.greet(conn)
}

// greet sends the connect-time corpus inventory: source set counts and the
// available subject list.
func (s *Service) greet(conn *Connection) {
	sources, originals := s.store.SourceCounts()
	if evt, err := events.New("", events.TypeSetList, events.SetListPayload{
		Sources:       sources,
		OriginalCount: originals,
	}); err == nil {
		s.cm.SendToPlayer(conn.ID, evt)
	} else {
		log.Error().Err(err).Msg("failed to build set list event")
	}

	if evt, err := events.New("", events.TypeSubjectList, events.SubjectListPayload{
		Subjects: s.store.Subjects(),
	}); err == nil {
		s.cm.SendToPlayer(conn.ID, evt)
	}
}
