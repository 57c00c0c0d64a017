package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"0":          "L 0.00",
		"34.5":       "L 34.50",
		"999.99":     "L 999.99",
		"1234.5":     "L 1,234.50",
		"1234567.89": "L 1,234,567.89",
		"-999.999":   "L -1,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "7", FormatInt(7))
	assert.Equal(t, "12,345", FormatInt(12345))
	assert.Equal(t, "-1,000", FormatInt(-1000))
}
