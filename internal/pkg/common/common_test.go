package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCustomErrorTemplates(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := ErrUpstreamUnavailable.WithErr(cause)

	assert.Equal(t, ErrCodeUpstreamUnavailable, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrUpstreamUnavailable.Err, "template stays untouched")

	msg := ErrInvalidRequest.WithMessage("Invalid stage")
	assert.Equal(t, "Invalid stage", msg.Message)
	assert.Equal(t, ErrCodeInvalidRequest, msg.Code)
}

func TestAsCustomError(t *testing.T) {
	wrapped := fmt.Errorf("scan: %w", ErrInvalidBarcode)
	assert.Same(t, ErrInvalidBarcode, AsCustomError(wrapped))

	plain := AsCustomError(errors.New("boom"))
	assert.Equal(t, ErrCodeInternalError, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("duplicate name")
	assert.True(t, IsValidationError(err))
	assert.True(t, IsValidationError(fmt.Errorf("load: %w", err)))
	assert.False(t, IsValidationError(errors.New("duplicate name")))
}

func TestDecodeJSONStrict(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSONStrict(strings.NewReader(`{"name":"salt"}`), &v))
	assert.Equal(t, "salt", v.Name)

	assert.Error(t, DecodeJSONStrict(strings.NewReader(`{"name":"salt","extra":1}`), &v))
	assert.Error(t, DecodeJSONStrict(strings.NewReader(`{"name":"salt"} {"name":"sugar"}`), &v))
	assert.NoError(t, ParseJSONBytes([]byte(`{"name":"sugar","extra":1}`), &v))
	assert.Equal(t, "sugar", v.Name)
}

func TestFilterFields(t *testing.T) {
	fields := filterFields([]zap.Field{
		zap.String("barcode", "123"),
		zap.String("ingredients", "water, sugar"),
		zap.String("raw_ingredient_text", "water"),
		zap.String("label", "front"),
	})
	require.Len(t, fields, 1)
	assert.Equal(t, "barcode", fields[0].Key)
}

func TestClientKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"remote addr", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientKey(c))
		})
	}
}

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	WriteError(c, ErrInvalidBarcode)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Barcode is required","code":"INVALID_BARCODE","message":"Barcode is required"}`, w.Body.String())
}
