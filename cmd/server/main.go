package main

import (
	"fmt"
	"log"
	"net/http"

	"mockmate/backend/internal/auth"
	"mockmate/backend/internal/config"
	"mockmate/backend/internal/database"
	"mockmate/backend/internal/handler"
	"mockmate/backend/internal/matching"
	"mockmate/backend/internal/presence"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Swagger imports
	_ "mockmate/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           MockMate API
// @version         1.0
// @description     This is the API for the MockMate peer-interview service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database and the presence store
	database.Connect(config.AppConfig.DatabaseURL)
	tracker := presence.Connect(config.AppConfig.RedisURL)

	matcher := matching.NewService(database.DB, tracker)
	handler.Init(matcher, tracker)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Matching routes (protected)
		matchingRoutes := apiV1.Group("/matching")
		matchingRoutes.Use(auth.AuthMiddleware())
		{
			matchingRoutes.POST("/start", handler.StartMatching)
			matchingRoutes.GET("/status", handler.GetMatchStatus)
			matchingRoutes.POST("/:id/confirm", handler.ConfirmMatch)
			matchingRoutes.POST("/:id/expire", handler.ExpireMatch)
			matchingRoutes.POST("/disconnect", handler.Disconnect)
			matchingRoutes.POST("/cancel", handler.CancelMatching)
			matchingRoutes.POST("/heartbeat", handler.Heartbeat)
			matchingRoutes.GET("/events", handler.MatchEvents)
			matchingRoutes.GET("/ws", handler.WaitingRoomSocket)
		}

		// Session routes (protected)
		sessionRoutes := apiV1.Group("/sessions")
		sessionRoutes.Use(auth.AuthMiddleware())
		{
			sessionRoutes.POST("", handler.CreateScheduledSession)
			sessionRoutes.GET("/:id", handler.GetScheduledSession)
			sessionRoutes.GET("/live/:id", handler.GetLiveSession)
			sessionRoutes.POST("/live/:id/switch-roles", handler.SwitchRoles)
			sessionRoutes.POST("/live/:id/next-question", handler.NextQuestion)
			sessionRoutes.POST("/live/:id/end", handler.EndLiveSession)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			// Question catalog CRUD
			questions := adminRoutes.Group("/questions")
			{
				questions.POST("", handler.CreateQuestion)
				questions.GET("", handler.GetQuestions)
				questions.POST("/:id/approve", handler.ApproveQuestion)
			}
		}
	}

	fmt.Println("Server is running on :8080")
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(":8080"))
}
