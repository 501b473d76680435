package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

// statusFor maps service error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	utils.RespondError(c, code, err)
}

// idParam parses a positive integer path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}

// authorize checks permission for the current user in storeID and answers the
// request itself when access is denied.
func authorize(c *gin.Context, access *services.AccessService, storeID uint, permission string) (string, bool) {
	role, err := access.Authorize(c.Request.Context(), middlewares.CurrentUserID(c), storeID, permission)
	if err != nil {
		respondServiceError(c, err)
		return "", false
	}
	return role, true
}

// queryUint parses an optional positive integer query parameter.
func queryUint(c *gin.Context, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	id := uint(v)
	return &id, nil
}
