package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/core"
	"github.com/liliumshare/liliumshare/internal/domain"
)

type helloEnvelope struct {
	Type string          `json:"type"`
	You  domain.Identity `json:"you"`
}

type incomingJoinEnvelope struct {
	Type        string               `json:"type"`
	Viewer      domain.Identity      `json:"viewer"`
	Permissions domain.PermissionSet `json:"permissions"`
}

type joinDeniedEnvelope struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// relay forwards a payload-bearing envelope verbatim to the target identity.
// Best effort, at most once: an offline target or a full send buffer drops
// the envelope with nothing reported back to the sender.
func (ctl *Controller) relay(sender domain.Identity, mtype string, to domain.Identity, data []byte) {
	if to == "" {
		log.Warn().Str("module", "signal").Str("identity", string(sender)).
			Str("type", mtype).Msg("relay envelope without target")
		return
	}
	target, ok := ctl.Registry.Lookup(to)
	if !ok {
		log.Info().Str("module", "signal").Str("identity", string(sender)).
			Str("type", mtype).Str("to", string(to)).Msg("relay target offline, dropping")
		return
	}
	if err := target.TrySend(core.Frame(data)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("identity", string(sender)).
			Str("type", mtype).Str("to", string(to)).Msg("relay send failed, dropping")
	}
}

// handleJoinRequest is the one envelope the server decides on itself. The
// viewer field is the sender's own identity; a claim to be someone else is
// overridden.
func (ctl *Controller) handleJoinRequest(ctx context.Context, sender domain.Identity, c core.SignalConnection, data []byte) {
	var p struct {
		Type   string          `json:"type"`
		Host   domain.Identity `json:"host"`
		Viewer domain.Identity `json:"viewer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join-request payload")
		return
	}
	viewer := sender
	if p.Host == "" {
		log.Warn().Str("module", "signal").Str("viewer", string(viewer)).Msg("join-request without host")
		return
	}

	decision := ctl.Auth.AuthorizeJoin(ctx, p.Host, viewer)
	if !decision.Accepted {
		log.Info().Str("module", "signal").Str("host", string(p.Host)).
			Str("viewer", string(viewer)).Str("reason", decision.Reason).Msg("join denied")
		ctl.sendJSON(c, joinDeniedEnvelope{Type: "join-denied", Reason: decision.Reason})
		return
	}

	host, ok := ctl.Registry.Lookup(p.Host)
	if !ok {
		// Host dropped between the authorization check and the send.
		ctl.sendJSON(c, joinDeniedEnvelope{Type: "join-denied", Reason: "host-offline"})
		return
	}

	log.Info().Str("module", "signal").Str("host", string(p.Host)).
		Str("viewer", string(viewer)).Msg("join accepted")
	ctl.sendJSON(host, incomingJoinEnvelope{
		Type:        "incoming-join",
		Viewer:      viewer,
		Permissions: decision.Permissions,
	})
}
