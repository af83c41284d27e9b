package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
	"github.com/katalogpart/katalog-server/internal/validation"
)

type openRequest struct {
	Figure string `json:"figure" validate:"required,figureid"`
}

type eventRequest struct {
	Type   string `json:"type" validate:"required,oneof=image_loaded row_click qty_change"`
	Target string `json:"target,omitempty" validate:"required_if=Type row_click"`
	Qty    int    `json:"qty" validate:"gte=0,lte=9999"`
	Note   string `json:"note" validate:"omitempty,notblank"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(openRequest{Figure: "A-12"}))
	assert.NoError(t, v.Validate(eventRequest{Type: "row_click", Target: "row-1", Qty: 2}))
	assert.NoError(t, v.Validate(eventRequest{Type: "image_loaded"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
		wantMsg   string
	}{
		{"missing figure", openRequest{}, "figure", "is required"},
		{"blank figure", openRequest{Figure: "   "}, "figure", "printable figure id"},
		{"figure too long", openRequest{Figure: strings.Repeat("x", 129)}, "figure", "printable figure id"},
		{"control characters", openRequest{Figure: "A\x0012"}, "figure", "printable figure id"},
		{"unknown event", eventRequest{Type: "hover"}, "type", "must be one of"},
		{"row click without target", eventRequest{Type: "row_click"}, "target", "is required when"},
		{"negative qty", eventRequest{Type: "qty_change", Qty: -1}, "qty", "greater than or equal to 0"},
		{"huge qty", eventRequest{Type: "qty_change", Qty: 10000}, "qty", "less than or equal to 9999"},
		{"blank note", eventRequest{Type: "image_loaded", Note: "  "}, "note", "must not be blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details[tt.wantField], tt.wantMsg)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(eventRequest{Type: "hover"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	details := domainErr.Details.(map[string]string)
	assert.Contains(t, details, "type")
	assert.NotContains(t, details, "Type")
}
