package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/utils"
)

// EventController receives completion events from the other tracker modules.
type EventController struct {
	engine *gamification.Engine
}

func NewEventController(engine *gamification.Engine) *EventController {
	return &EventController{engine: engine}
}

func (e *EventController) Publish(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	type request struct {
		Type        gamification.EventType `json:"type" binding:"required"`
		UnitID      string                 `json:"unit_id"`
		EntityID    string                 `json:"entity_id"`
		Description string                 `json:"description"`
		Points      int64                  `json:"points"`
		Metadata    map[string]any         `json:"metadata"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	res, err := e.engine.HandleDomainEvent(ctx.Request.Context(), gamification.DomainEvent{
		Type:        req.Type,
		UserID:      userID,
		UnitID:      req.UnitID,
		EntityID:    req.EntityID,
		Description: utils.SanitizeText(req.Description, maxDescriptionLen),
		Points:      req.Points,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidateRankings(ctx)
	utils.Created(ctx, res)
}
