package genes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(gs []*Gene) []string {
	var out []string
	for _, g := range gs {
		out = append(out, g.Name)
	}
	return out
}

func TestIndex_At(t *testing.T) {
	ix := loadTest(t).Index(HG19)
	assert.Equal(t, HG19, ix.Build())

	tests := []struct {
		name  string
		chrom string
		pos   int
		want  []string
	}{
		{"start bound", "chr22", 42522500, []string{"genea"}},
		{"end bound", "chr22", 42526883, []string{"genea"}},
		{"between genes", "chr22", 42530000, nil},
		{"second gene", "chr22", 42536214, []string{"genec"}},
		{"bare label", "22", 42522600, []string{"genea"}},
		{"other chromosome", "chr12", 48232319, []string{"geneb"}},
		{"unknown chromosome", "chr3", 100, nil},
		{"unparseable region skipped", "chr1", 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(ix.At(tt.chrom, tt.pos)))
		})
	}
}

func TestIndex_MissingBuildRegion(t *testing.T) {
	ix := loadTest(t).Index(HG38)
	// genec has no hg38 region.
	assert.Empty(t, ix.At("chr22", 42536214))
	assert.Equal(t, []string{"genea"}, names(ix.At("chr22", 42126498)))
	assert.Equal(t, []string{"genee"}, names(ix.At("chr1", 2)))
}

func TestIndex_Overlapping(t *testing.T) {
	c, err := Load(strings.NewReader("name\ttype\tcontrol\thg19_region\n"+
		"outer\ttarget\tno\tchr2:100-500\n"+
		"inner\ttarget\tno\tchr2:200-300\n"+
		"late\ttarget\tno\tchr2:250-260\n"))
	require.NoError(t, err)
	ix := c.Index(HG19)
	assert.Equal(t, []string{"outer", "inner", "late"}, names(ix.At("2", 255)))
	assert.Equal(t, []string{"outer"}, names(ix.At("2", 400)))
	assert.Empty(t, ix.At("2", 501))
}
