package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMaxLength(t *testing.T) {
	assert.NoError(t, ValidateMaxLength("operation", "OP-10", 5))
	assert.NoError(t, ValidateMaxLength("operation", "裂纹裂纹", 4), "length counts characters, not bytes")
	assert.ErrorContains(t, ValidateMaxLength("operation", "OP-100", 5), "operation exceeds maximum length of 5")
}

func TestValidateNonNegative(t *testing.T) {
	assert.NoError(t, ValidateNonNegative("other_cost", 0))
	assert.Error(t, ValidateNonNegative("other_cost", -0.01))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "line one\nline\ttwo\r\n", SanitizeText("line\x00 one\nline\ttwo\x1b\r\n"))
}
