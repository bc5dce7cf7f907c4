package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/config"
	"github.com/vovakirdan/wirestream/internal/core"
	"github.com/vovakirdan/wirestream/internal/fanout"
)

// Pinger reports whether the shared store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer builds an HTTP server with health, REST and WebSocket routes.
func NewServer(coord *core.Coordinator, hub *fanout.Hub, pinger Pinger, cfg config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler(pinger, logger))

	roomHandlers := NewRoomHandlers(coord, cfg.MaxMessageBytes, logger)
	api := router.Group("/api")
	{
		api.GET("/rooms", roomHandlers.ListRooms)
		api.POST("/rooms", roomHandlers.CreateRoom)
		api.GET("/rooms/:id", roomHandlers.GetRoom)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(coord, hub, WSOptions{
		MaxMessageBytes: cfg.MaxMessageBytes,
	}, logger)))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(pinger Pinger, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("health check: store unreachable")
			c.String(http.StatusServiceUnavailable, "store unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	}
}
