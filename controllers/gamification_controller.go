package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/middleware"
	"github.com/cppla/lifetrack/models"
	"github.com/cppla/lifetrack/utils"
)

const (
	rankingCachePrefix = "cache:ranking:"
	maxDescriptionLen  = 512
)

// GamificationController serves profiles, rankings and achievements.
type GamificationController struct {
	engine     *gamification.Engine
	rankingTTL time.Duration
}

func NewGamificationController(engine *gamification.Engine, rankingTTL time.Duration) *GamificationController {
	return &GamificationController{engine: engine, rankingTTL: rankingTTL}
}

// Profile returns the stats of the caller's profile for unit_id.
func (g *GamificationController) Profile(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	stats, err := g.engine.GetProfileStats(ctx.Request.Context(), userID, ctx.Query("unit_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// Overview bundles profile, streak, achievements and rank.
func (g *GamificationController) Overview(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	data, err := g.engine.GetGamificationData(ctx.Request.Context(), userID, ctx.Query("unit_id"), middleware.AuthToken(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, data)
}

func (g *GamificationController) WeeklyActivity(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	week, err := g.engine.GetWeeklyActivity(ctx.Request.Context(), userID, ctx.Query("unit_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, week)
}

// Ranking returns the leaderboard for unit_id, or the global one for period.
func (g *GamificationController) Ranking(ctx *gin.Context) {
	scope, ok := rankingScope(ctx)
	if !ok {
		return
	}
	limit, err := parseLimit(ctx.Query("limit"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "limit must be a positive integer")
		return
	}

	key := fmt.Sprintf("%s%s:%s:%d", rankingCachePrefix, scope.UnitID, scope.Period, limit)
	var entries []gamification.RankingEntry
	if utils.CacheGetJSON(ctx.Request.Context(), key, &entries) {
		utils.Success(ctx, entries)
		return
	}

	entries, err = g.engine.GetRanking(ctx.Request.Context(), scope, limit, middleware.AuthToken(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, entries, g.rankingTTL)
	utils.Success(ctx, entries)
}

// MyRank returns the caller's position in the scope.
func (g *GamificationController) MyRank(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	scope, ok := rankingScope(ctx)
	if !ok {
		return
	}
	rank, err := g.engine.GetUserRank(ctx.Request.Context(), scope, userID, middleware.AuthToken(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, rank)
}

func (g *GamificationController) Achievements(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	list, err := g.engine.ListAchievements(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// CheckAchievements re-evaluates the caller's achievements.
func (g *GamificationController) CheckAchievements(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	unlocked, err := g.engine.RefreshAchievements(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if unlocked == nil {
		unlocked = []models.Achievement{}
	}
	utils.Success(ctx, gin.H{"unlocked": unlocked})
}

// AwardPoints credits the caller with points from a client-reported source.
func (g *GamificationController) AwardPoints(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	type request struct {
		UnitID      string            `json:"unit_id"`
		Points      int64             `json:"points" binding:"required"`
		SourceType  models.SourceType `json:"source_type" binding:"required"`
		SourceID    string            `json:"source_id"`
		Description string            `json:"description"`
		Metadata    map[string]any    `json:"metadata"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.SourceType == models.SourceCheckIn {
		utils.Error(ctx, http.StatusBadRequest, 40003, "check-ins are recorded through /checkins")
		return
	}

	res, err := g.engine.AwardPoints(ctx.Request.Context(), gamification.AwardInput{
		UserID:      userID,
		UnitID:      req.UnitID,
		Points:      req.Points,
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
		Description: utils.SanitizeText(req.Description, maxDescriptionLen),
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidateRankings(ctx)
	utils.Created(ctx, res)
}

func rankingScope(ctx *gin.Context) (gamification.RankingScope, bool) {
	period, err := gamification.ParsePeriod(ctx.Query("period"))
	if err != nil {
		respondError(ctx, err)
		return gamification.RankingScope{}, false
	}
	return gamification.RankingScope{UnitID: ctx.Query("unit_id"), Period: period}, true
}

func invalidateRankings(ctx *gin.Context) {
	utils.InvalidateByPrefix(ctx.Request.Context(), rankingCachePrefix)
}
