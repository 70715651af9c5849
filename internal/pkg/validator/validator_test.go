package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type materialInput struct {
	Name         string  `json:"name" validate:"required"`
	Unit         string  `json:"unit" validate:"required"`
	DefaultPrice float64 `json:"default_price" validate:"gte=0"`
}

type monthInput struct {
	Month string `json:"month" validate:"required,month"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	errs := v.Validate(materialInput{Name: "Copper pipe", Unit: "m", DefaultPrice: 12.5})
	assert.Empty(t, errs)

	errs = v.Validate(materialInput{DefaultPrice: -1})
	require.Len(t, errs, 3)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "name is required", errs[0].Message)
	assert.Equal(t, "default_price", errs[2].Field)
}

func TestValidator_Month(t *testing.T) {
	v := New()

	assert.Empty(t, v.Validate(monthInput{Month: "2024-02"}))

	errs := v.Validate(monthInput{Month: "02/2024"})
	require.Len(t, errs, 1)
	assert.Equal(t, "month", errs[0].Tag)
}
