package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sagecouncil/council/pkg/council"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// registry tracks the live websocket per session. A session reconnecting
// supersedes its previous socket so stale tabs cannot hold the stream.
type registry struct {
	mu    sync.Mutex
	conns map[string]*wsConn
}

func (r *registry) claim(sessionID string, c *wsConn) {
	r.mu.Lock()
	if r.conns == nil {
		r.conns = make(map[string]*wsConn)
	}
	prev := r.conns[sessionID]
	r.conns[sessionID] = c
	r.mu.Unlock()
	if prev != nil && prev != c {
		prev.shutdown()
	}
}

func (r *registry) release(sessionID string, c *wsConn) {
	r.mu.Lock()
	if r.conns[sessionID] == c {
		delete(r.conns, sessionID)
	}
	r.mu.Unlock()
}

// wsConn is one seeker's websocket. Reads happen on the handler goroutine,
// writes are funneled through a single writer goroutine, and every in-flight
// consultation pumps its events into the shared send channel.
type wsConn struct {
	g    *Gateway
	conn *websocket.Conn
	log  *slog.Logger

	send   chan council.Frame
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	sessionID string
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.Logger.Warn("websocket upgrade", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	c := &wsConn{
		g:      g,
		conn:   conn,
		log:    g.Logger.With("remote", conn.RemoteAddr().String()),
		send:   make(chan council.Frame, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.writeLoop()
	c.readLoop()
	c.shutdown()
	if c.sessionID != "" {
		g.sessions.release(c.sessionID, c)
	}
}

func (c *wsConn) shutdown() {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}

// write queues a frame for the writer. Returns false once the connection is
// going away; callers drop the frame rather than block.
func (c *wsConn) write(f council.Frame) bool {
	select {
	case c.send <- f:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case f := <-c.send:
			if err := c.conn.WriteJSON(f); err != nil {
				c.log.Debug("websocket write", "error", err)
				c.shutdown()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *wsConn) readLoop() {
	for {
		var f council.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read", "error", err)
			}
			return
		}
		switch f.Type {
		case council.TypeStartChat:
			if f.SessionID != "" && f.SessionID != c.sessionID {
				c.sessionID = f.SessionID
				c.g.sessions.claim(f.SessionID, c)
			}
			// Async so a long consultation never blocks the next frame.
			go c.startChat(f)
		default:
			c.write(council.Frame{Type: council.TypeError, Message: "Unknown message type", MessageID: f.MessageID})
		}
	}
}

func (c *wsConn) startChat(f council.Frame) {
	req := &council.Request{
		ID:        f.MessageID,
		SessionID: f.SessionID,
		Content:   f.Content,
		SageIDs:   f.SelectedSages,
	}
	if req.ID == 0 {
		req.ID = council.NewRequestID()
	}
	events, err := c.g.Orchestrator.Start(c.ctx, req)
	if err != nil {
		_, msg := chatError(err)
		c.log.Info("consultation rejected", "request", req.ID, "session", req.SessionID, "error", err)
		c.write(council.Frame{Type: council.TypeError, Message: msg, MessageID: req.ID})
		return
	}
	for ev := range events {
		if !c.write(ev.Frame()) {
			// Connection gone; keep draining so the orchestrator can
			// settle the credit and persist the message.
			for range events {
			}
			return
		}
	}
}
