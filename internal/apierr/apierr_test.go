package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrValidationFailed, http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", models.ErrSourceUnavailable, models.ErrNotFound), http.StatusNotFound},
		{models.ErrRefreshInProgress, http.StatusConflict},
		{models.ErrSourceUnavailable, http.StatusBadGateway},
		{models.ErrTimeout, http.StatusBadGateway},
		{models.ErrRateLimited, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Write(c, fmt.Errorf("project: %w", models.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"project: token pair not found"}`, w.Body.String())
}
