package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUSD(t *testing.T) {
	cases := map[string]string{
		"0":         "$0.00",
		"7.5":       "$7.50",
		"1234.567":  "$1,234.57",
		"-250":      "-$250.00",
		"1000000.1": "$1,000,000.10",
	}
	for in, want := range cases {
		assert.Equal(t, want, USD(decimal.RequireFromString(in)), in)
	}
}
