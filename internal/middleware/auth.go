package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/utils"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
	UserTypeKey  = "userType"
)

type TokenValidator interface {
	Validate(token string) (*utils.Claims, error)
}

func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentification requise."})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tokens.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expirée. Veuillez vous reconnecter."})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserTypeKey, claims.Type)

		c.Next()
	}
}

// RequireType lets the request through only for the listed user types.
func RequireType(types ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, _ := c.Get(UserTypeKey)
		userType, _ := current.(models.UserType)
		for _, t := range types {
			if userType == t {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès refusé."})
	}
}
