package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xwms/xwms/internal/platform/httpx"
)

type sampleLine struct {
	Item     string  `json:"item" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

type sampleInput struct {
	Type  string       `json:"type" validate:"oneof=Receipt Consume"`
	Lines []sampleLine `json:"items" validate:"required,dive"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := ValidateStruct(sampleInput{Type: "Sell", Lines: []sampleLine{{Quantity: 0}}})
	require.Error(t, err)
	require.True(t, errors.Is(err, httpx.ErrValidation))

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, "must be one of [Receipt Consume]", fields["type"])
	assert.Equal(t, "is required", fields["items[0].item"])
	assert.Equal(t, "must be greater than 0", fields["items[0].quantity"])
}

func TestValidateStructPasses(t *testing.T) {
	require.NoError(t, ValidateStruct(sampleInput{Type: "Receipt", Lines: []sampleLine{{Item: "TV", Quantity: 1}}}))
}
