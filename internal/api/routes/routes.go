package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whisper-server/internal/api/handlers"
	"whisper-server/internal/api/middleware"
	"whisper-server/internal/repositories/postgres"
	"whisper-server/internal/services"
	"whisper-server/internal/storage"
	"whisper-server/internal/ws"
)

type Router struct {
	engine         *gin.Engine
	authHandler    *handlers.AuthHandler
	serverHandler  *handlers.ServerHandler
	channelHandler *handlers.ChannelHandler
	keysHandler    *handlers.KeysHandler
	uploadHandler  *handlers.UploadHandler
	wsHandler      *handlers.WSHandler
	authMW         *middleware.AuthMiddleware
	rateLimitMW    *middleware.RateLimitMiddleware
}

// NewRouter wires repositories, services, and handlers around the shared
// realtime registry. objectStore may be nil; upload routes are then skipped.
func NewRouter(
	db *gorm.DB,
	auth *services.AuthService,
	presence *services.PresenceService,
	registry *ws.Registry,
	wsProto *ws.Handler,
	objectStore *storage.ObjectStore,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogAPI())

	userRepo := postgres.NewUserRepository(db)
	serverRepo := postgres.NewServerRepository(db)
	channelRepo := postgres.NewChannelRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	serverService := services.NewServerService(serverRepo)
	channelService := services.NewChannelService(channelRepo, serverRepo, messageRepo)

	var uploadHandler *handlers.UploadHandler
	if objectStore != nil {
		uploadHandler = handlers.NewUploadHandler(objectStore)
	}

	return &Router{
		engine:         engine,
		authHandler:    handlers.NewAuthHandler(auth),
		serverHandler:  handlers.NewServerHandler(serverService),
		channelHandler: handlers.NewChannelHandler(channelService),
		keysHandler:    handlers.NewKeysHandler(userRepo),
		uploadHandler:  uploadHandler,
		wsHandler:      handlers.NewWSHandler(auth, registry, wsProto),
		authMW:         middleware.NewAuthMiddleware(auth),
		rateLimitMW:    middleware.NewRateLimitMiddleware(presence),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// Token auth happens inside the handler, before the upgrade.
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	public := api.Group("/auth")
	public.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
	{
		public.POST("/register", r.authHandler.Register)
		public.POST("/login", r.authHandler.Login)
	}

	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	auth.Use(r.rateLimitMW.RateLimit(200, time.Minute))
	{
		servers := auth.Group("/servers")
		{
			servers.POST("", r.serverHandler.Create)
			servers.GET("", r.serverHandler.List)
			servers.POST("/join", r.serverHandler.Join)
			servers.GET("/:id/members", r.serverHandler.Members)
		}

		channels := auth.Group("/channels")
		{
			channels.POST("", r.channelHandler.Create)
			channels.GET("/by-server/:serverId", r.channelHandler.ListByServer)
			channels.GET("/:id/messages", r.channelHandler.Messages)
		}

		auth.GET("/conversations/:id/messages", r.channelHandler.DMMessages)

		keys := auth.Group("/keys")
		{
			keys.PUT("", r.keysHandler.Publish)
			keys.GET("/:userId", r.keysHandler.Bundle)
		}

		if r.uploadHandler != nil {
			uploads := auth.Group("/uploads")
			{
				uploads.POST("", r.uploadHandler.Upload)
				uploads.GET("/:key", r.uploadHandler.Download)
			}
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
