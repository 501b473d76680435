package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/utils"
)

// WebSocketAuthMiddleware authenticates from the token query parameter or
// the Authorization header when one is given. Anonymous upgrades pass through
// with no user id; a token that does not validate is rejected.
func WebSocketAuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			c.Next()
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
