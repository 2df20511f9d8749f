package dto

import (
	"net/http"
	"testing"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeInvalidState, http.StatusConflict},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeExternalFetch, http.StatusBadGateway},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{shared.CodePartialData, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(shared.CodeNotFound, "audit not found", "req-1")
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "req-1", resp.Error.RequestID)

	resp = NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "cycle", Message: "This field is required"}})
	assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
}
