package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/app"
	"github.com/liliumshare/liliumshare/internal/config"
	"github.com/liliumshare/liliumshare/internal/domain"
	"github.com/liliumshare/liliumshare/internal/store"
)

// Handlers is the plain request/response surface next to the relay: user
// registration, friendship state, permissions, connection keys.
type Handlers struct {
	Store    store.Directory
	Registry *app.Registry
	Issuer   *app.KeyIssuer
	Cfg      *config.Config
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Register(c *gin.Context) {
	var req struct {
		Pubkey   domain.Identity `json:"pubkey"`
		Nickname string          `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	user, err := domain.NewUser(req.Pubkey, req.Nickname)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Store.UpsertUser(c.Request.Context(), *user); err != nil {
		h.storeError(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("nickname", user.Nickname).Msg("registered user")
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) UserByNickname(c *gin.Context) {
	nickname := c.Query("nickname")
	if nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname required"})
		return
	}
	user, err := h.Store.GetUserByNickname(c.Request.Context(), nickname)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown nickname"})
		return
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type friendEntry struct {
	Other    domain.Identity `json:"other"`
	Nickname string          `json:"nickname"`
}

// FriendsList groups both directions' rows the way the clients render them:
// a pending row where me is the viewer is an incoming request, pending where
// me is the host is outgoing, and accepted pairs (host side only, to avoid
// listing each pair twice) are friends. The counterpart's nickname is joined
// in when registered.
func (h *Handlers) FriendsList(c *gin.Context) {
	me := domain.Identity(c.Query("me"))
	if err := me.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "me required"})
		return
	}
	ctx := c.Request.Context()
	rows, err := h.Store.ListFriendships(ctx, me)
	if err != nil {
		h.storeError(c, err)
		return
	}

	incoming := make([]friendEntry, 0)
	outgoing := make([]friendEntry, 0)
	friends := make([]friendEntry, 0)
	for _, f := range rows {
		switch {
		case f.Status == domain.FriendPending && f.Viewer == me:
			incoming = append(incoming, h.friendEntry(ctx, f.Host))
		case f.Status == domain.FriendPending && f.Host == me:
			outgoing = append(outgoing, h.friendEntry(ctx, f.Viewer))
		case f.Status == domain.FriendAccepted && f.Host == me:
			friends = append(friends, h.friendEntry(ctx, f.Viewer))
		}
	}
	c.JSON(http.StatusOK, gin.H{"incoming": incoming, "outgoing": outgoing, "friends": friends})
}

func (h *Handlers) friendEntry(ctx context.Context, other domain.Identity) friendEntry {
	e := friendEntry{Other: other}
	if u, err := h.Store.GetUser(ctx, other); err == nil {
		e.Nickname = u.Nickname
	}
	return e
}

func (h *Handlers) FriendRequest(c *gin.Context) {
	var req struct {
		Me     domain.Identity `json:"me"`
		Friend domain.Identity `json:"friend"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Me.Validate() != nil || req.Friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "me and friend required"})
		return
	}
	if err := h.Store.RequestFriendship(c.Request.Context(), req.Me, req.Friend); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.FriendPending)})
}

func (h *Handlers) FriendAccept(c *gin.Context) {
	var req struct {
		Me     domain.Identity `json:"me"`
		Friend domain.Identity `json:"friend"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Me.Validate() != nil || req.Friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "me and friend required"})
		return
	}
	if err := h.Store.AcceptFriendship(c.Request.Context(), req.Me, req.Friend); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.FriendAccepted)})
}

// FriendUpsert is the bootstrap path: accepted rows both ways, host→friend
// permissions in one call.
func (h *Handlers) FriendUpsert(c *gin.Context) {
	var req struct {
		Host        domain.Identity      `json:"host"`
		Friend      domain.Identity      `json:"friend"`
		Permissions domain.PermissionSet `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Host.Validate() != nil || req.Friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host and friend required"})
		return
	}
	ctx := c.Request.Context()
	if err := h.Store.AcceptFriendship(ctx, req.Host, req.Friend); err != nil {
		h.storeError(c, err)
		return
	}
	if req.Permissions != nil {
		if err := h.Store.SetPermissions(ctx, req.Host, req.Friend, req.Permissions); err != nil {
			h.storeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.FriendAccepted)})
}

func (h *Handlers) PermissionsGet(c *gin.Context) {
	host := domain.Identity(c.Query("host"))
	friend := domain.Identity(c.Query("friend"))
	if host.Validate() != nil || friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host and friend required"})
		return
	}
	f, err := h.Store.GetFriendship(c.Request.Context(), host, friend)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no friendship"})
		return
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": f.Status, "permissions": f.Permissions})
}

func (h *Handlers) PermissionsSet(c *gin.Context) {
	var req struct {
		Host        domain.Identity      `json:"host"`
		Friend      domain.Identity      `json:"friend"`
		Permissions domain.PermissionSet `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Host.Validate() != nil || req.Friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host and friend required"})
		return
	}
	if req.Permissions == nil {
		req.Permissions = domain.PermissionSet{}
	}
	err := h.Store.SetPermissions(c.Request.Context(), req.Host, req.Friend, req.Permissions)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no friendship"})
		return
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": req.Permissions})
}

func (h *Handlers) ConnKeyGenerate(c *gin.Context) {
	var req struct {
		Host   domain.Identity `json:"host"`
		Friend domain.Identity `json:"friend"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Host.Validate() != nil || req.Friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host and friend required"})
		return
	}
	key, err := h.Issuer.Generate(c.Request.Context(), req.Host, req.Friend)
	if errors.Is(err, app.ErrNotAccepted) {
		c.JSON(http.StatusConflict, gin.H{"error": "friendship not accepted"})
		return
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conn_key": key.Key, "created_at": key.CreatedAt})
}

func (h *Handlers) ConnKeyGet(c *gin.Context) {
	host := domain.Identity(c.Query("host"))
	friend := domain.Identity(c.Query("friend"))
	if host.Validate() != nil || friend.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host and friend required"})
		return
	}
	key, err := h.Issuer.Fetch(c.Request.Context(), host, friend)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no connection key"})
		return
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conn_key": key.Key, "created_at": key.CreatedAt})
}

func (h *Handlers) DebugConnections(c *gin.Context) {
	ids := h.Registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{"connected": ids, "count": len(ids)})
}

func (h *Handlers) storeError(c *gin.Context, err error) {
	log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("store error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
