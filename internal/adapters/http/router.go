package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/liliumshare/liliumshare/internal/adapters/signal"
	"github.com/liliumshare/liliumshare/internal/app"
	"github.com/liliumshare/liliumshare/internal/config"
	"github.com/liliumshare/liliumshare/internal/store"
)

// Deps is everything the HTTP surface needs, wired in main.
type Deps struct {
	Store    store.Directory
	Registry *app.Registry
	Issuer   *app.KeyIssuer
	Signal   *signal.Controller
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	h := &Handlers{Store: deps.Store, Registry: deps.Registry, Issuer: deps.Issuer, Cfg: cfg}

	r.GET("/healthz", h.Health)

	r.GET("/ws", func(c *gin.Context) {
		deps.Signal.HandleSignal(ctx, c)
	})

	api := r.Group("/api")
	api.POST("/register", h.Register)
	api.GET("/users/by-nickname", h.UserByNickname)

	friends := api.Group("/friends")
	friends.GET("/list", h.FriendsList)
	friends.POST("/request", h.FriendRequest)
	friends.POST("/accept", h.FriendAccept)
	friends.POST("/upsert", h.FriendUpsert)
	friends.GET("/permissions", h.PermissionsGet)
	friends.POST("/permissions", h.PermissionsSet)
	friends.GET("/connkey", h.ConnKeyGet)
	friends.POST("/connkey/generate", h.ConnKeyGenerate)

	api.GET("/rtc/ice-servers", h.ICEServers)
	api.GET("/debug/connections", h.DebugConnections)

	return r
}
