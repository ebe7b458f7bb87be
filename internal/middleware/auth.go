package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hospital-ops-server/internal/config"
	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
	"hospital-ops-server/internal/utils"
)

const actorKey = "actor"

// AuthMiddleware creates a middleware for JWT authentication. The verified
// claims become a scheduling.Actor stored on the context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}
		if claims.TenantID == "" && claims.Role != models.RoleSuperAdmin {
			utils.Unauthorized(c, "Token carries no hospital")
			c.Abort()
			return
		}

		c.Set(actorKey, scheduling.Actor{
			Kind:     claims.Role,
			Ref:      claims.UserID,
			TenantID: claims.TenantID,
		})
		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			utils.InternalServerError(c, "Actor not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if actor.Kind == allowed {
				c.Next()
				return
			}
		}
		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// ActorFromContext returns the actor set by AuthMiddleware.
func ActorFromContext(c *gin.Context) (scheduling.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return scheduling.Actor{}, false
	}
	actor, ok := v.(scheduling.Actor)
	return actor, ok
}

// SetActor stores an actor on the context. Used by tests and internal callers
// that authenticate by other means.
func SetActor(c *gin.Context, actor scheduling.Actor) {
	c.Set(actorKey, actor)
}
