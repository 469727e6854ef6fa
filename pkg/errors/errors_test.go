package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWrap_KeepsAppErrorType(t *testing.T) {
	err := Wrap(NewCountMismatchError("check_elements", 3, 2), "assemble")

	assert.True(t, IsCountMismatch(err))
	assert.Contains(t, err.Error(), "assemble: check_elements: requested 3 elements, received 2")
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	cause := stderrors.New("boom")

	err := Wrap(cause, "search template")

	assert.True(t, IsType(err, ErrorTypeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, "unused"))
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", NewValidationError("bad template"), http.StatusBadRequest, "VALIDATION"},
		{"not found", NewNotFoundError("identifier"), http.StatusNotFound, "NOT_FOUND"},
		{"count mismatch", NewCountMismatchError("content", 2, 1), http.StatusBadGateway, "COUNT_MISMATCH"},
		{"unavailable", NewUnavailableError("graph service"), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := NewErrorHandler(zap.NewNop(), false)
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)

			// Act
			handler.Handle(w, r, tt.err)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantType, body.Type)
		})
	}
}

func TestErrorHandler_HidesInternalMessage(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	w := httptest.NewRecorder()

	handler.Handle(w, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("secret detail"))

	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	w := httptest.NewRecorder()

	handler.Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
