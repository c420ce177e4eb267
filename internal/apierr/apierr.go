// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/sirupsen/logrus"
)

// Status maps a domain error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrSourceUnavailable),
		errors.Is(err, models.ErrTimeout),
		errors.Is(err, models.ErrRateLimited):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write sends {"error": ...} with the mapped status. Server-side failures are logged.
func Write(c *gin.Context, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
