package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/lifetrack/gamification"
	"github.com/cppla/lifetrack/middleware"
	"github.com/cppla/lifetrack/utils"
)

// respondError maps engine errors onto the response envelope.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, gamification.ErrCheckInAlreadyDone):
		utils.Error(ctx, http.StatusBadRequest, 40030, "check-in already done today")
	case errors.Is(err, gamification.ErrCheckInInProgress):
		utils.Error(ctx, http.StatusConflict, 40901, "check-in in progress, retry")
	case errors.Is(err, gamification.ErrCheckInLocation):
		utils.Error(ctx, http.StatusForbidden, 40301, err.Error())
	case errors.Is(err, gamification.ErrCheckInTrainingInProgress):
		utils.Error(ctx, http.StatusForbidden, 40302, "training session in progress")
	case errors.Is(err, gamification.ErrEligibility):
		utils.Error(ctx, http.StatusForbidden, 40300, err.Error())
	case errors.Is(err, gamification.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, gamification.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	default:
		utils.Logger.Error("request failed",
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal server error")
	}
}

func requireUser(ctx *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return userID, ok
}
