package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mittell/blogpost/config"
	"github.com/mittell/blogpost/controllers"
	"github.com/mittell/blogpost/middleware"
	"github.com/mittell/blogpost/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, db *gorm.DB) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.OK(ctx, http.StatusOK, gin.H{"status": "ok"})
	})

	sessions := utils.NewSessionManager(cfg.JWTSecret, cfg.IsProduction())

	authController := controllers.NewAuthController(db, sessions)
	postController := controllers.NewPostController(db)
	adminController := controllers.NewAdminController(db)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/me", middleware.SessionRequired(sessions), authController.Me)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)

	postsGroup := r.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/:id", postController.GetPost)

	postsAuthed := r.Group("/posts")
	postsAuthed.Use(middleware.SessionRequired(sessions))
	postsAuthed.POST("", postController.CreatePost)
	postsAuthed.PATCH("/:id", postController.UpdatePost)
	postsAuthed.DELETE("/:id", postController.DeletePost)
	postsAuthed.POST("/:id/comments", postController.CreateComment)
	postsAuthed.DELETE("/:id/comments", postController.DeleteComment)

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.SessionRequired(sessions), middleware.AdminRequired(db))
	adminGroup.GET("/users", adminController.ListUsers)
	adminGroup.POST("/users", adminController.CreateUser)
	adminGroup.PATCH("/users/:id", adminController.UpdateUser)
	adminGroup.DELETE("/users/:id", adminController.DeleteUser)
	adminGroup.GET("/posts", adminController.ListPosts)
	adminGroup.DELETE("/posts/:id", adminController.DeletePost)
	adminGroup.GET("/comments", adminController.ListComments)
	adminGroup.DELETE("/comments/:id", adminController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Fail(ctx, http.StatusNotFound, "Route not found")
	})

	return r
}
