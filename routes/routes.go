package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sparkshare-api/config"
	"sparkshare-api/controllers"
	"sparkshare-api/metrics"
	"sparkshare-api/middleware"
	"sparkshare-api/services"
	"sparkshare-api/sparks/shortsaver"
)

// Dependencies are the wired components the HTTP surface is built on.
type Dependencies struct {
	Config     *config.Config
	Log        logrus.FieldLogger
	Users      *services.UserService
	Friends    *services.FriendService
	Shares     *services.ShareService
	Registry   *services.SparkRegistry
	ShortSaver *shortsaver.Spark
}

// SetupCORS allows browser clients to call the API with a bearer token.
func SetupCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRoutes registers every endpoint on r. ctx bounds background work
// started by the middleware.
func SetupRoutes(ctx context.Context, r *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	// Controllers
	userController := controllers.NewUserController(deps.Users, deps.Log)
	friendController := controllers.NewFriendController(deps.Friends, deps.Log)
	shareController := controllers.NewShareController(deps.Shares, deps.Registry, deps.Log)
	shortSaverController := controllers.NewShortSaverController(deps.ShortSaver, deps.Log)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API version 1
	v1 := r.Group("/api/v1")

	// Protected routes
	protected := v1.Group("/")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWTSecret, deps.Users, deps.Log),
		middleware.RateLimit(ctx, cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.ValidateJSON(),
	)
	{
		users := protected.Group("/users")
		{
			users.GET("/me", userController.GetProfile)
			users.PUT("/me", userController.SyncProfile)
		}

		// Friend graph
		friends := protected.Group("/friends")
		{
			friends.GET("", friendController.GetFriends)
			friends.POST("/invitations", friendController.CreateInvitation)
			friends.GET("/invitations/pending", friendController.GetPendingInvitations)
			friends.GET("/invitations/sent", friendController.GetSentInvitations)
			friends.POST("/invitations/:id/accept", friendController.AcceptInvitation)
			friends.POST("/invitations/:id/reject", friendController.RejectInvitation)
			friends.DELETE("/invitations/:id", friendController.DeleteInvitation)
			friends.DELETE("/:user_id", friendController.RemoveFriend)
			friends.GET("/:user_id/status", friendController.GetFriendshipStatus)
		}

		// Spark registry
		sparks := protected.Group("/sparks")
		{
			sparks.GET("", shareController.GetSparks)
			sparks.GET("/:spark_id/shareable", shareController.GetShareableItems)
			sparks.POST("/:spark_id/share", shareController.ShareSparkItem)

			sparks.GET("/short-saver/clips", shortSaverController.GetClips)
			sparks.POST("/short-saver/clips", shortSaverController.SaveClip)
			sparks.POST("/short-saver/clips/:id/share", shortSaverController.ShareClip)
		}

		// Shared-item mailbox
		shared := protected.Group("/shared-items")
		{
			shared.POST("", shareController.ShareItemCopy)
			shared.GET("/item/:id", shareController.GetSharedItem)
			shared.POST("/item/:id/accept", shareController.AcceptSharedItem)
			shared.POST("/item/:id/reject", shareController.RejectSharedItem)
			shared.GET("/:spark_id/pending", shareController.GetPendingSharedItems)
			shared.GET("/:spark_id/accepted", shareController.GetAcceptedSharedItems)
			shared.GET("/:spark_id/sent", shareController.GetSentSharedItems)
			shared.GET("/:spark_id/inbox", shareController.SyncInbox)
		}
	}
}
