package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
)

const (
	ContextStoreID   = "store_id"
	ContextStoreRole = "store_role"
)

// storeIDFrom looks at :storeId, then :id, then store_id in a JSON body. The
// body is restored for the handler.
func storeIDFrom(c *gin.Context) uint {
	for _, name := range []string{"storeId", "id"} {
		if raw := c.Param(name); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				return uint(id)
			}
			return 0
		}
	}

	if c.Request.Body == nil {
		return 0
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return 0
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		StoreID json.Number `json:"store_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	id, err := strconv.ParseUint(payload.StoreID.String(), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// RequireStorePermission resolves the caller's role in the addressed store and
// checks it against permission. It must run after AuthMiddleware.
func RequireStorePermission(access *services.AccessService, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := storeIDFrom(c)
		if storeID == 0 {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("store id is required"))
			return
		}

		role, err := access.Authorize(c.Request.Context(), CurrentUserID(c), storeID, permission)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, services.ErrForbidden) {
				code = http.StatusForbidden
			}
			utils.AbortWithError(c, code, err)
			return
		}

		c.Set(ContextStoreID, storeID)
		c.Set(ContextStoreRole, role)
		c.Next()
	}
}

func StoreID(c *gin.Context) uint {
	return c.GetUint(ContextStoreID)
}

func StoreRole(c *gin.Context) string {
	return c.GetString(ContextStoreRole)
}
