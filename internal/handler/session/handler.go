package session

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mstepanek/gallery-voice/backend/internal/service/lookup"
	"github.com/mstepanek/gallery-voice/backend/internal/service/realtime"
)

// ConnectFunc establishes one upstream conversation per client connection.
type ConnectFunc func(ctx context.Context) (realtime.Conversation, error)

// Handler upgrades /realtime requests and runs one Session per connection.
type Handler struct {
	connect  ConnectFunc
	enricher *lookup.Enricher
	prompts  PromptSet
	options  realtime.SessionOptions
	upgrader websocket.Upgrader
}

// New builds the websocket session handler.
func New(connect ConnectFunc, enricher *lookup.Enricher, prompts PromptSet, options realtime.SessionOptions) *Handler {
	return &Handler{
		connect:  connect,
		enricher: enricher,
		prompts:  prompts,
		options:  options,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/realtime", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.connect == nil {
		http.Error(w, "realtime backend unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sessionID := uuid.NewString()
	log.Printf("[websocket] new connection session=%s", sessionID)

	upstream, err := h.connect(ctx)
	if err != nil {
		log.Printf("[websocket] upstream connect failed session=%s: %v", sessionID, err)
		return
	}

	sess := newSession(sessionID, conn, upstream, h.enricher, h.prompts)
	defer sess.close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	go h.pingLoop(ctx, sess)

	// Configuration, greeting and instruction seeding happen alongside the
	// socket read loop; audio arriving before they finish is still accepted.
	go func() {
		if err := sess.start(ctx, h.options); err != nil {
			sess.logf("session start failed: %v", err)
			cancel()
			return
		}
		sess.startEventLoop(ctx)
	}()

	sess.readSocket(ctx, cancel)
}

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

func (h *Handler) pingLoop(ctx context.Context, sess *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sess.ping(); err != nil {
				return
			}
		}
	}
}
