package routes

import (
	"net/http"
	"time"

	"bottlebank/handlers"
	"bottlebank/middleware"
	"bottlebank/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers signup/signin and profile endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/register", hb.Auth.RegisterHandler)
		api.POST("/login", hb.Auth.AuthenticateHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuth())
		protected.GET("/me", hb.Auth.GetProfileHandler)
		protected.PUT("/fcm-token", hb.Auth.UpdateFCMTokenHandler)
	}
}

// RegisterJobRoutes registers the job lifecycle endpoints. Host-only and
// collector-only actions are separated by role.
func RegisterJobRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/jobs")
	api.Use(middleware.JWTAuth())
	{
		api.GET("/:id", hb.Jobs.GetJobHandler)
	}

	host := r.Group("/api/jobs")
	host.Use(middleware.JWTAuth(string(models.RoleHost)))
	{
		host.POST("", hb.Jobs.CreateJobHandler)
		host.DELETE("/:id", hb.Jobs.DeleteJobHandler)
		host.POST("/:id/feedback", hb.Jobs.FeedbackHandler)
		host.POST("/:id/dispute", hb.Jobs.DisputeJobHandler)
	}

	collector := r.Group("/api/jobs")
	collector.Use(middleware.JWTAuth(string(models.RoleCollector)))
	{
		collector.POST("/:id/claim", hb.Jobs.ClaimJobHandler)
		collector.POST("/:id/release", hb.Jobs.ReleaseJobHandler)
		collector.POST("/:id/start", hb.Jobs.StartJobHandler)
		collector.POST("/:id/arrive", hb.Jobs.ArriveJobHandler)
		collector.POST("/:id/cancel", hb.Jobs.CancelJobHandler)
		collector.POST("/:id/complete", hb.Jobs.CompleteJobHandler)
	}
}

// RegisterFeedRoutes registers the derived view endpoints.
func RegisterFeedRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/feed")
	api.Use(middleware.JWTAuth())
	{
		api.GET("/available", hb.Feed.AvailableJobsHandler)
		api.GET("/claimed", hb.Feed.MyClaimedHandler)
		api.GET("/posted", hb.Feed.MyPostedHandler)
		api.GET("/leaderboard", hb.Feed.LeaderboardHandler)
		api.GET("/timeline", hb.Feed.TimelineHandler)
		api.GET("/impact", hb.Feed.ImpactHandler)
	}

	// Stats are public.
	r.GET("/api/stats", hb.Feed.StatsHandler)
	r.GET("/api/stats/cities", hb.Feed.CityStatsHandler)
}

// RegisterStorageRoutes registers proof photo endpoints.
func RegisterStorageRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/photos")
	api.Use(middleware.JWTAuth())
	{
		api.POST("/upload", hb.Storage.UploadProofPhotoHandler)
		api.GET("/:id/url", hb.Storage.GetPhotoURLHandler)
	}
}

// RegisterAIRoutes registers the bottle count oracle endpoint.
func RegisterAIRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/ai")
	api.Use(middleware.JWTAuth(string(models.RoleCollector)))
	{
		api.POST("/analyze", hb.AI.AnalyzePhotoHandler)
	}
}

// RegisterGeoRoutes registers address lookup endpoints.
func RegisterGeoRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/geo")
	api.Use(middleware.JWTAuth())
	{
		api.GET("/geocode", hb.Geo.GeocodeHandler)
		api.GET("/reverse", hb.Geo.ReverseGeocodeHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm BottleBank"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAuthRoutes(r, hb)
	RegisterJobRoutes(r, hb)
	RegisterFeedRoutes(r, hb)
	RegisterStorageRoutes(r, hb)
	RegisterAIRoutes(r, hb)
	RegisterGeoRoutes(r, hb)
	RegisterHealthRoute(r)
}
