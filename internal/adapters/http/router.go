// Package http exposes the session facade to a local UI over a small JSON
// API.
package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/frank005/broadcastaway-sub000/internal/app/orch"
	"github.com/frank005/broadcastaway-sub000/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("BroadcastSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Int("port", cfg.Port).Msg("router setup")

	ctl := &Controller{Orch: o, Cfg: cfg}
	api := r.Group("/api")

	api.POST("/join", ctl.Join)
	api.POST("/leave", ctl.Leave)
	api.GET("/state", ctl.State)

	api.POST("/stage/apply", ctl.Apply)
	api.POST("/stage/promote", ctl.Promote)
	api.POST("/stage/demote", ctl.Demote)
	api.POST("/stage/leave", ctl.LeaveStage)

	api.POST("/show/start", ctl.StartShow)
	api.POST("/show/end", ctl.EndShow)

	api.POST("/screen/start", ctl.StartScreen)
	api.POST("/screen/stop", ctl.StopScreen)

	api.POST("/converter/start", ctl.StartConverter)
	api.POST("/converter/stop", ctl.StopConverter)

	api.POST("/captions/start", ctl.StartCaptions)
	api.POST("/captions/stop", ctl.StopCaptions)
	api.POST("/captions/subscribe", ctl.SubscribeCaptions)

	api.POST("/tool/connect", ctl.ConnectTool)
	api.POST("/tool/disconnect", ctl.DisconnectTool)
	api.POST("/tool/mirror/start", ctl.StartMirror)
	api.POST("/tool/mirror/stop", ctl.StopMirror)
	api.GET("/tool/scenes", ctl.Scenes)
	api.POST("/tool/scene", ctl.SetScene)

	return r
}
