package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/utils"
)

const dateLayout = "2006-01-02"

// CheckInController handles daily check-in endpoints.
type CheckInController struct {
	engine *gamification.Engine
}

func NewCheckInController(engine *gamification.Engine) *CheckInController {
	return &CheckInController{engine: engine}
}

// Create records today's check-in for a unit.
func (c *CheckInController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	type request struct {
		UnitID   string                 `json:"unit_id" binding:"required"`
		Location *gamification.Location `json:"location"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	res, err := c.engine.CreateCheckIn(ctx.Request.Context(), gamification.CheckInInput{
		UserID:   userID,
		UnitID:   req.UnitID,
		Location: req.Location,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidateRankings(ctx)
	utils.Created(ctx, res)
}

// History lists check-ins of a unit. start_date and end_date are inclusive local dates.
func (c *CheckInController) History(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	q := gamification.HistoryQuery{UserID: userID, UnitID: ctx.Query("unit_id")}
	loc := c.engine.Now().Location()
	var err error
	if q.Start, err = parseDate(ctx.Query("start_date"), loc); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "start_date must be YYYY-MM-DD")
		return
	}
	if q.End, err = parseDate(ctx.Query("end_date"), loc); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "end_date must be YYYY-MM-DD")
		return
	}
	if !q.End.IsZero() {
		q.End = q.End.AddDate(0, 0, 1)
	}
	if q.Limit, err = parseLimit(ctx.Query("limit")); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "limit must be a positive integer")
		return
	}

	history, err := c.engine.GetCheckInHistory(ctx.Request.Context(), q)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, history)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
