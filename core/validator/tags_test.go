package validator_test

import (
	"testing"

	"github.com/dmitrymomot/peepsy/core/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionsUnderTest struct {
	Target         string `validate:"required"`
	TimeoutMs      int    `validate:"between:1,300000"`
	MaxConcurrency int    `validate:"min:0"`
	MaxRetries     int    `validate:"min:0;max:10"`
}

func TestValidateStructPassesValidValues(t *testing.T) {
	o := optionsUnderTest{Target: "worker-1", TimeoutMs: 5000, MaxConcurrency: 4, MaxRetries: 0}
	assert.NoError(t, validator.ValidateStruct(&o))
}

func TestValidateStructReportsMissingRequiredField(t *testing.T) {
	o := optionsUnderTest{TimeoutMs: 5000}
	err := validator.ValidateStruct(&o)
	require.Error(t, err)

	errs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	assert.Len(t, errs, 1)
	assert.Equal(t, "Target", errs[0].Field)
}

func TestValidateStructRejectsTimeoutOutOfRange(t *testing.T) {
	o := optionsUnderTest{Target: "w", TimeoutMs: 300001, MaxConcurrency: 0}
	err := validator.ValidateStruct(&o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 1 and 300000")
}

func TestValidateStructRejectsNegativeConcurrency(t *testing.T) {
	o := optionsUnderTest{Target: "w", TimeoutMs: 1000, MaxConcurrency: -1}
	err := validator.ValidateStruct(&o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 0")
}

func TestValidateStructAggregatesMultipleFailures(t *testing.T) {
	o := optionsUnderTest{TimeoutMs: 0, MaxConcurrency: -5}
	err := validator.ValidateStruct(&o)
	require.Error(t, err)

	errs := err.(validator.ValidationErrors)
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestValidateStructRejectsNonPointer(t *testing.T) {
	err := validator.ValidateStruct(optionsUnderTest{})
	assert.Error(t, err)
}
