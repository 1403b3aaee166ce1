package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/lifetrack/config"
	"github.com/cppla/lifetrack/controllers"
	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/middleware"
	"github.com/cppla/lifetrack/utils"
)

// Dependencies is what SetupRouter needs to serve the API.
type Dependencies struct {
	Config config.AppConfig
	Engine *gamification.Engine
	Logger *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// AllowCredentials is rejected together with a wildcard origin.
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	checkIns := controllers.NewCheckInController(deps.Engine)
	game := controllers.NewGamificationController(deps.Engine, time.Duration(cfg.RankingCacheTTLSec)*time.Second)
	events := controllers.NewEventController(deps.Engine)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(cfg.TokenRevocation), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))

	api.POST("/checkins", checkIns.Create)
	api.GET("/checkins", checkIns.History)

	gm := api.Group("/gamification")
	gm.GET("/profile", game.Profile)
	gm.GET("/me", game.Overview)
	gm.GET("/activity/weekly", game.WeeklyActivity)
	gm.GET("/ranking", game.Ranking)
	gm.GET("/ranking/me", game.MyRank)
	gm.GET("/achievements", game.Achievements)
	gm.POST("/achievements/check", game.CheckAchievements)
	gm.POST("/points", game.AwardPoints)

	api.POST("/events", events.Publish)
	api.POST("/session/logout", controllers.Logout)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
