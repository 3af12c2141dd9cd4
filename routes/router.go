package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/recyclebuddy/recyclebuddy/config"
	"github.com/recyclebuddy/recyclebuddy/controllers"
	"github.com/recyclebuddy/recyclebuddy/game"
	"github.com/recyclebuddy/recyclebuddy/middleware"
	"github.com/recyclebuddy/recyclebuddy/quiz"
	"github.com/recyclebuddy/recyclebuddy/store"
	"github.com/recyclebuddy/recyclebuddy/utils"
)

// Deps are the long-lived services the handlers share.
type Deps struct {
	Store    store.Store
	Pipeline *quiz.Pipeline
	Sessions quiz.SessionStore
	Rules    game.Rules
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.Gin.Mode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.Gin.LogPath, cfg.Log)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnw("gin access log disabled", "error", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(deps.Store, controllers.AuthOptions{
		TokenTTL:       time.Duration(cfg.App.TokenTTLHours) * time.Hour,
		CaptchaEnabled: cfg.Register.CaptchaEnabled,
		MaxPerIPPerDay: cfg.Register.MaxPerIPPerDay,
	})
	userController := controllers.NewUserController(deps.Store, deps.Rules, cfg.Game.DailyUploadLimit)
	quizController := controllers.NewQuizController(deps.Store, deps.Pipeline, deps.Sessions, deps.Rules, controllers.QuizOptions{
		DailyLimit:     cfg.Game.DailyUploadLimit,
		MaxUploadBytes: int64(cfg.Uploads.MaxSizeMB) << 20,
		UploadDir:      cfg.Uploads.Dir,
		QuizTTL:        time.Duration(cfg.Game.QuizTTLMinutes) * time.Minute,
	})

	limiter := middleware.RateLimit(cfg.App.RateLimitPerMinute)
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limiter)
	protected.GET("/user/info", userController.Info)
	protected.GET("/user/titles", userController.Titles)
	protected.GET("/quiz/quota", quizController.Quota)
	protected.POST("/quiz/scan", quizController.Scan)
	protected.GET("/quiz/current", quizController.Current)
	protected.POST("/quiz/answer", quizController.SubmitAnswer)
	protected.GET("/uploads/:name", quizController.Upload)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
