package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/app"
	"github.com/liliumshare/liliumshare/internal/core"
	"github.com/liliumshare/liliumshare/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the websocket signaling endpoint: one read loop per
// connection, envelope dispatch, and opaque forwarding between identities.
type Controller struct {
	Registry *app.Registry
	Auth     *app.Authorizer

	ReadLimit  int64
	PingPeriod time.Duration
}

type WsSignalConn struct {
	// id correlates log lines across pumps; two connections for the same
	// identity are otherwise indistinguishable in logs.
	id   string
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades /ws?pubkey=<identity>. The pubkey parameter is the
// connection's identity for its whole lifetime; without it there is nothing
// to register, so the request is refused before any upgrade.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	id := domain.Identity(c.Query("pubkey"))
	if err := id.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pubkey required"})
		return
	}
	cid := uuid.NewString()
	log.Info().Str("module", "signal").Str("identity", string(id)).Str("conn", cid).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		id:   cid,
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	// One logical session per identity: close the superseded connection
	// instead of letting it linger until its own read loop errors.
	if prev := ctl.Registry.Register(id, conn); prev != nil {
		prev.Close()
	}

	ctx, cancel := context.WithCancel(ctx)

	ctl.sendJSON(conn, helloEnvelope{Type: "hello", You: id})

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, id, conn)
	}()
}
