package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/config"
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/store"
)

// NewServer builds the HTTP server: room management and message submission
// over plain HTTP, the room page and its websocket on the room path.
func NewServer(registry *core.Registry, relay *core.Relay, subs *core.Subscriptions, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware())

	handlers := NewHandlers(registry, relay, logger)
	ws := NewWSHandler(subs, st, logger)

	router.GET("/healthz", handlers.Health)
	router.POST("/create-room", handlers.CreateRoom)
	router.POST("/send-message", handlers.SendMessage)

	// Everything else is a room path: websocket upgrades get the join
	// handshake, plain GETs get the chat page.
	router.NoRoute(handlers.RoomRoute(ws))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
