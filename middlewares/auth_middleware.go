package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextToken  = "token"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func setClaims(c *gin.Context, claims *utils.CustomClaims, token string) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextToken, token)
}

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, err)
			return
		}

		setClaims(c, claims, token)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
