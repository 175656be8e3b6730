package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/core"
	"github.com/liliumshare/liliumshare/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	pingPeriod := ctl.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, id domain.Identity, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("identity", string(id)).Str("conn", c.id).Msg("readPump closing")
		ctl.Registry.Unregister(id, c)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("identity", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("identity", string(id)).Msg("readPump read error")
				return
			}
			ctl.handleEnvelope(ctx, id, c, data)
		}
	}
}

// handleEnvelope classifies one inbound envelope. Only join-request is
// answered by the server; every other typed envelope with a target is
// forwarded verbatim. Malformed input drops without touching the connection.
func (ctl *Controller) handleEnvelope(ctx context.Context, sender domain.Identity, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("identity", string(sender)).Msg("bad json")
		return
	}

	switch env.Type {
	case "":
		log.Warn().Str("module", "signal").Str("identity", string(sender)).Msg("envelope without type")
	case "join-request":
		ctl.handleJoinRequest(ctx, sender, c, data)
	default:
		ctl.relay(sender, env.Type, domain.Identity(env.To), data)
	}
}

func (ctl *Controller) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
