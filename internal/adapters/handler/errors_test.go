package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("name", domain.ErrNameRequired), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", domain.NewValidationError("code", domain.ErrDuplicateCode)), http.StatusBadRequest},
		{"department not found", domain.ErrDepartmentNotFound, http.StatusNotFound},
		{"course not found", domain.ErrCourseNotFound, http.StatusNotFound},
		{"member not found", domain.ErrMemberNotFound, http.StatusNotFound},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("validation errors name the field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, zap.NewNop(), domain.NewValidationError("confirm", domain.ErrConfirmationRequired))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "confirm", body.Field)
		assert.Equal(t, domain.ErrConfirmationRequired.Error(), body.Error)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeError(rec, zap.NewNop(), errors.New("dial tcp 10.0.0.3:6379: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	})
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:5173"}

	assert.True(t, originAllowed(allowed, ""))
	assert.True(t, originAllowed(allowed, "http://localhost:5173"))
	assert.False(t, originAllowed(allowed, "http://evil.example"))
	assert.True(t, originAllowed([]string{"*"}, "http://anything.example"))
}
