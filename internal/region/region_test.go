package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
)

func TestParse(t *testing.T) {
	r, err := Parse("chr1:100-200")
	require.NoError(t, err)
	assert.Equal(t, Region{Chrom: "chr1", Start: 100, End: 200}, r)
	assert.Equal(t, 101, r.Width())
	assert.Equal(t, "1", r.Bare())
	assert.Equal(t, "chr1:100-200", r.String())
}

func TestParse_SinglePosition(t *testing.T) {
	r, err := Parse("22:42522500-42522500")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Width())
}

func TestParse_ThousandsSeparators(t *testing.T) {
	r, err := Parse("chr22:42,522,500-42,526,883")
	require.NoError(t, err)
	assert.Equal(t, 42522500, r.Start)
	assert.Equal(t, 42526883, r.End)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"start after end", "1:200-100"},
		{"missing colon", "chr1-100-200"},
		{"missing dash", "chr1:100"},
		{"empty chrom", ":100-200"},
		{"non-integer start", "chr1:abc-200"},
		{"non-integer end", "chr1:100-2x0"},
		{"zero start", "chr1:0-10"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, pgxerr.ErrFormat)
			assert.Contains(t, err.Error(), tt.token)
		})
	}
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "1", StripPrefix("chr1"))
	assert.Equal(t, "X", StripPrefix("chrX"))
	assert.Equal(t, "1", StripPrefix("1"))
	assert.Equal(t, "chr", StripPrefix("chr"))
	assert.Equal(t, "Un_gl000220", StripPrefix("chrUn_gl000220"))
}

func TestContains(t *testing.T) {
	r := MustParse("7:10-20")
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(9))
	assert.False(t, r.Contains(21))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}
