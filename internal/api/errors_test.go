package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare_backend/internal/shared/apperr"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		err          error
		expose       bool
		expectedCode int
		expectedBody ErrorResponse
	}{
		{
			name:         "validation with fields",
			err:          apperr.Validation("invalid listing", map[string]string{"quantity": "must be greater than 0"}),
			expectedCode: http.StatusBadRequest,
			expectedBody: ErrorResponse{Error: "invalid listing", Code: "VALIDATION_ERROR", Fields: map[string]string{"quantity": "must be greater than 0"}},
		},
		{
			name:         "forbidden",
			err:          apperr.Forbidden("not authorized to update this entry"),
			expectedCode: http.StatusForbidden,
			expectedBody: ErrorResponse{Error: "not authorized to update this entry", Code: "FORBIDDEN"},
		},
		{
			name:         "conflict",
			err:          apperr.Conflict("food waste is not available to claim"),
			expectedCode: http.StatusConflict,
			expectedBody: ErrorResponse{Error: "food waste is not available to claim", Code: "CONFLICT"},
		},
		{
			name:         "store error hides detail",
			err:          apperr.Store(errors.New("pq: relation does not exist")),
			expectedCode: http.StatusInternalServerError,
			expectedBody: ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"},
		},
		{
			name:         "store error with details in development",
			err:          apperr.Store(errors.New("boom")),
			expose:       true,
			expectedCode: http.StatusInternalServerError,
			expectedBody: ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR", Details: "store failure: boom"},
		},
		{
			name:         "unclassified error",
			err:          errors.New("unexpected"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"},
		},
		{
			name:         "upstream keeps its message",
			err:          apperr.Upstream("assistant is unavailable", errors.New("quota")),
			expectedCode: http.StatusBadGateway,
			expectedBody: ErrorResponse{Error: "assistant is unavailable", Code: "UPSTREAM_ERROR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ExposeErrorDetails = tt.expose
			defer func() { ExposeErrorDetails = false }()

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			WriteError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.True(t, c.IsAborted())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedBody, body)
		})
	}
}

func TestBindingError(t *testing.T) {
	t.Parallel()

	type req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(JSONTagName)

	err := v.Struct(req{Email: "nope", Password: "short"})
	require.Error(t, err)

	ae := BindingError(err)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "must be a valid email address", ae.Fields["email"])
	assert.Equal(t, "must be at least 8", ae.Fields["password"])
}

func TestBindingError_MalformedBody(t *testing.T) {
	t.Parallel()

	ae := BindingError(errors.New("unexpected EOF"))
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "invalid request body", ae.Message)
	assert.Nil(t, ae.Fields)
}

// TestBindingError_BodyTooLarge はMaxBytesReaderの上限超過（ラップされていても）を413に変換することを検証します。
func TestBindingError_BodyTooLarge(t *testing.T) {
	t.Parallel()

	tooLarge := &http.MaxBytesError{Limit: 10 << 10}
	for _, err := range []error{tooLarge, fmt.Errorf("multipart: NextPart: %w", tooLarge)} {
		assert.True(t, IsBodyTooLarge(err))
		ae := BindingError(err)
		assert.Equal(t, apperr.KindTooLarge, ae.Kind)
		assert.Equal(t, http.StatusRequestEntityTooLarge, StatusOf(ae.Kind))
	}
	assert.False(t, IsBodyTooLarge(errors.New("unexpected EOF")))
}
