// Package httpsink exposes a Gin HTTP server with a status/trades API and a
// WebSocket broadcast of every emitted event, grounded on the teacher's
// api/tactics.go handler shape (gin.H responses, ShouldBindJSON, uuid IDs).
// This is the concrete push transport for the dashboard the distilled spec
// keeps out of scope — the UI itself is not built here, only the feed it
// would subscribe to.
package httpsink

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"barwatch/internal/auth"
	"barwatch/internal/obslog"
	"barwatch/internal/sink"
)

// Sink serves /status, /trades and /ws. It keeps the most recent events in
// a bounded buffer that /status and /trades read from; a /ws client
// receives only the events emitted after it connects.
type Sink struct {
	log      *obslog.Logger
	guard    *auth.Guard
	mu       sync.Mutex
	recent   []sink.Event
	maxKeep  int
	wsMu     sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader

	onHalt   func()
	onResume func()
}

// New builds a Sink and wires its routes onto engine. guard may be nil to
// disable auth on the control endpoints (development only).
func New(engine *gin.Engine, log *obslog.Logger, guard *auth.Guard) *Sink {
	s := &Sink{
		log:      log,
		guard:    guard,
		maxKeep:  500,
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.registerRoutes(engine)
	return s
}

func (s *Sink) registerRoutes(r *gin.Engine) {
	r.GET("/status", s.handleStatus)
	r.GET("/trades", s.handleTrades)
	r.GET("/ws", s.handleWS)

	control := r.Group("/control")
	if s.guard != nil {
		control.Use(s.guard.RequireBearer())
	}
	control.POST("/halt", s.handleHalt)
	control.POST("/resume", s.handleResume)
}

func (s *Sink) handleStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]sink.Event, 0)
	for _, ev := range s.recent {
		if ev.Kind == sink.BotStatus {
			statuses = append(statuses, ev)
		}
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func (s *Sink) handleTrades(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trades := make([]sink.Event, 0)
	for _, ev := range s.recent {
		if ev.Kind == sink.TradeExecuted || ev.Kind == sink.TradeClosed {
			trades = append(trades, ev)
		}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "request_id": uuid.New().String()})
}

// SetControlHooks wires the orchestrator's halt/resume callbacks; halt and
// resume routes are transport-only otherwise.
func (s *Sink) SetControlHooks(halt, resume func()) {
	s.onHalt, s.onResume = halt, resume
}

func (s *Sink) handleHalt(c *gin.Context) {
	if s.guard != nil {
		if !s.guard.RequireTOTP(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "totp step-up required"})
			return
		}
	}
	if s.onHalt != nil {
		s.onHalt()
	}
	c.JSON(http.StatusOK, gin.H{"status": "halted"})
}

func (s *Sink) handleResume(c *gin.Context) {
	if s.onResume != nil {
		s.onResume()
	}
	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}

func (s *Sink) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnf("httpsink: ws upgrade failed: %v", err)
		return
	}
	s.wsMu.Lock()
	s.clients[conn] = struct{}{}
	s.wsMu.Unlock()

	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.clients, conn)
			s.wsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Sink) broadcast(ev sink.Event) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Sink) Emit(ctx context.Context, ev sink.Event) {
	s.mu.Lock()
	s.recent = append(s.recent, ev)
	if len(s.recent) > s.maxKeep {
		s.recent = s.recent[len(s.recent)-s.maxKeep:]
	}
	s.mu.Unlock()
	s.broadcast(ev)
}
