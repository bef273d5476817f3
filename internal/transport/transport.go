package transport

import (
	"github.com/gin-gonic/gin"

	"weather-notifier/internal/transport/middleware"
)

func InitRoutes(userHandler *UserHandler, broadcastHandler *BroadcastHandler) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.GET("", userHandler.GetAllUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("/:id/notify", broadcastHandler.NotifyUser)
		}

		api.POST("/notify", broadcastHandler.NotifyAll)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "weather-notifier",
		})
	})

	return router
}
