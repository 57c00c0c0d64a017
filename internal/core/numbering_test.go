package core_test

import (
	"regexp"
	"testing"
	"time"

	"invagro/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorizedRange(t *testing.T) {
	tests := []struct {
		desc string
		want core.AuthorizedRange
		ok   bool
	}{
		{"FAC-0001", core.AuthorizedRange{Prefix: "FAC-", Start: 1, Width: 4}, true},
		{"F001-00001 a F001-00100", core.AuthorizedRange{Prefix: "F001-", Start: 1, End: 100, Width: 5}, true},
		{"000-001-01-00000001 al 000-001-01-00005000", core.AuthorizedRange{Prefix: "000-001-01-", Start: 1, End: 5000, Width: 8}, true},
		{"A-10..A-99", core.AuthorizedRange{Prefix: "A-", Start: 10, End: 99, Width: 2}, true},
		{"FAC-0001 hasta OTRO-0100", core.AuthorizedRange{Prefix: "FAC-", Start: 1, Width: 4}, true},
		{"", core.AuthorizedRange{}, false},
		{"sin numeros", core.AuthorizedRange{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, ok := core.ParseAuthorizedRange(tt.desc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizedRange_Next(t *testing.T) {
	r := core.AuthorizedRange{Prefix: "FAC-", Start: 1, Width: 4}

	next, err := r.Next("FAC-0042")
	require.NoError(t, err)
	assert.Equal(t, "FAC-0043", next)

	next, err = r.Next("")
	require.NoError(t, err)
	assert.Equal(t, "FAC-0001", next, "no previous invoice starts the range")

	next, err = r.Next("F001-20240101120000")
	require.NoError(t, err)
	assert.Equal(t, "FAC-0001", next, "different prefix restarts the range")

	next, err = r.Next("FAC-00A1")
	require.NoError(t, err)
	assert.Equal(t, "FAC-0001", next, "non-numeric suffix restarts the range")
}

func TestAuthorizedRange_Exhausted(t *testing.T) {
	r := core.AuthorizedRange{Prefix: "F001-", Start: 1, End: 100, Width: 5}

	next, err := r.Next("F001-00099")
	require.NoError(t, err)
	assert.Equal(t, "F001-00100", next)

	_, err = r.Next("F001-00100")
	assert.ErrorIs(t, err, core.ErrRangeExhausted)
}

func TestAuthorizedRange_BelowStartRestarts(t *testing.T) {
	r := core.AuthorizedRange{Prefix: "FAC-", Start: 500, Width: 4}
	assert.Equal(t, int64(500), r.NextValue("FAC-0042"))
	assert.Equal(t, int64(501), r.NextValue("FAC-0500"))
}

func TestFallbackInvoiceNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^F001-\d{14}$`)
	t1 := time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("CST", -6*3600))

	a := core.FallbackInvoiceNumber(t1)
	b := core.FallbackInvoiceNumber(t1.Add(2 * time.Second))

	assert.Regexp(t, pattern, a)
	assert.Equal(t, "F001-20240305200709", a, "timestamp is UTC")
	assert.NotEqual(t, a, b)
}
