package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

func performWithError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/boom", func(c *gin.Context) {
		c.Error(err)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"duplicate name", fmt.Errorf("create alert: %w", domain.ErrConflict), http.StatusConflict, "conflict"},
		{"field validation", domain.ValidationErrors{{Field: "name", Message: "name is required"}}, http.StatusBadRequest, "validation_error"},
		{"bad input", domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{"bad range", domain.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
		{"timed out", domain.ErrTimedOut, http.StatusGatewayTimeout, "timed_out"},
		{"store down", domain.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performWithError(tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantError)
		})
	}
}
