package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

// Context keys set by AuthMiddleware
const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

// AuthMiddleware authenticates bearer tokens against a verifier, normally a
// chain of the service's own tokens and Casdoor.
type AuthMiddleware struct {
	verifier auth.Verifier
}

func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate returns a Gin middleware function that rejects requests without a valid token
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Details: "authorization header missing",
			})
			return
		}

		// Extract token from "Bearer <token>" format
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Details: "invalid authorization header format",
			})
			return
		}

		principal, err := am.verifier.Verify(tokenParts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Details: "invalid token",
			})
			return
		}

		c.Set(ctxUserID, principal.Subject)
		c.Set(ctxUserEmail, principal.Email)
		c.Set(ctxUserRole, principal.Role)

		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role. Admins pass every check.
func (am *AuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := currentRole(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Details: "user role not found in context",
			})
			return
		}

		for _, required := range requiredRoles {
			if role == required || role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Details: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

func currentRole(c *gin.Context) (models.UserRole, bool) {
	v, exists := c.Get(ctxUserRole)
	if !exists {
		return "", false
	}
	role, ok := v.(models.UserRole)
	return role, ok
}

// currentActor names the caller in audit entries
func currentActor(c *gin.Context) string {
	if email := c.GetString(ctxUserEmail); email != "" {
		return email
	}
	if id := c.GetString(ctxUserID); id != "" {
		return id
	}
	return "Admin"
}

// studentEmail resolves which email a student request acts on. Students may
// only act on their own email; admins may name any.
func studentEmail(c *gin.Context, requested string) (string, bool) {
	role, _ := currentRole(c)
	if role == models.RoleAdmin {
		return requested, true
	}
	own := c.GetString(ctxUserEmail)
	if requested == "" {
		return own, true
	}
	return requested, requested == own
}
