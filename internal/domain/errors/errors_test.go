package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	v := NewValidationError()
	assert.NoError(t, v.OrNil())

	v.Add("condition", "unknown label")
	v.Add("action", "unknown section")
	v.Add("condition", "ignored")

	err := v.OrNil()
	assert.Error(t, err)
	assert.Equal(t, "validation failed: action: unknown section; condition: unknown label", err.Error())
}
