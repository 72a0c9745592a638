package api

import (
	"errors"
	"net/http"

	"MilestoneMarket/internal/chain"
	"MilestoneMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor 错误 -> HTTP 状态码
func statusFor(err error) int {
	switch {
	case service.IsValidationError(err), errors.Is(err, errBadThreshold),
		errors.Is(err, errBadBlock), errors.Is(err, errBadHash):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrDeadlineNotPassed),
		errors.Is(err, service.ErrMarketClosed),
		errors.Is(err, service.ErrContractAlreadyAttached):
		return http.StatusConflict
	case errors.Is(err, chain.ErrTransport),
		errors.Is(err, chain.ErrRPC),
		errors.Is(err, chain.ErrMetadata),
		errors.Is(err, chain.ErrABIDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError 统一错误响应 {"error": message}
func respondError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	code := statusFor(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"op":         op,
		"status":     code,
		"request_id": c.GetString(requestIDKey),
	})
	if code >= http.StatusInternalServerError {
		entry.Error(op + " failed")
	} else {
		entry.Warn(op + " rejected")
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
