package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/middleware"
	"github.com/noah-isme/enrollsys-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext converts the JWT claims into the actor identity the
// services operate on.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}, false
	}
	return models.Actor{ID: claims.UserID, Role: claims.Role, Name: claims.FullName}, true
}
