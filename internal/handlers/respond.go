package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-ledger/internal/services"
)

// respond writes an engine result, choosing the status from its error
func respond[T any](c *gin.Context, res services.Result[T]) {
	if res.Success {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(statusFor(res.Err()), res)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case services.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNothingToPay),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// reject answers with the envelope of a request rejected before the engine ran
func reject(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}

// badRequest rejects a malformed request before it reaches the engine
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func accountID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("account_id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid account ID"})
		return 0, false
	}
	return uint(id), true
}
