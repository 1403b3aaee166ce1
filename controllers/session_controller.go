package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lifetrack/middleware"
	"github.com/cppla/lifetrack/utils"
)

// Logout revokes the bearer token of the current request.
func Logout(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	claims, err := utils.ParseToken(middleware.AuthToken(ctx))
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	if claims.ExpiresAt != nil {
		utils.RevokeToken(ctx.Request.Context(), claims.ID, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"revoked": true})
}
