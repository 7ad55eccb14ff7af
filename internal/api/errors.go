package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// Error codes returned in the "code" field of error responses.
const (
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeRPC              = "RPC_ERROR"
	ErrCodeDecode           = "DECODE_ERROR"
	ErrCodeVerifyInProgress = "VERIFY_IN_PROGRESS"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      code,
		Error:     message,
		RequestID: c.GetString("request_id"),
	})
}

// writeError maps a domain error to its HTTP status and code.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrVerifyInProgress):
		respondError(c, http.StatusConflict, ErrCodeVerifyInProgress, "A verification for this account is already running, try again shortly")
	case errors.Is(err, domain.ErrConfiguration):
		logError(c, err)
		respondError(c, http.StatusInternalServerError, ErrCodeConfiguration, "Deposit verification is not configured")
	case errors.Is(err, domain.ErrRPC):
		logError(c, err)
		respondError(c, http.StatusInternalServerError, ErrCodeRPC, "Blockchain RPC request failed, please retry later")
	case errors.Is(err, domain.ErrDecode):
		logError(c, err)
		respondError(c, http.StatusInternalServerError, ErrCodeDecode, "Could not decode on-chain transfer logs")
	case errors.Is(err, context.DeadlineExceeded):
		logError(c, err)
		respondError(c, http.StatusGatewayTimeout, ErrCodeTimeout, "Verification timed out, please retry later")
	default:
		logError(c, err)
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}

func logError(c *gin.Context, err error) {
	slog.Error("Request failed",
		"request_id", c.GetString("request_id"),
		"path", c.FullPath(),
		"error", err,
	)
}
