package sdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesvanalstine/pypgx/internal/depth"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write(depth.Row{Chrom: "chr12", Pos: 48232319, Depths: []int{31, 0, 7}}))
	require.NoError(t, w.Write(depth.Row{Chrom: "chr12", Pos: 48232320, Depths: []int{30, 1, 7}}))
	assert.Empty(t, buf.String(), "rows are buffered until Flush")
	require.NoError(t, w.Flush())

	assert.Equal(t, "chr12\t48232319\t31\t0\t7\nchr12\t48232320\t30\t1\t7\n", buf.String())
}

func TestWriter_WriteAllEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteAll(nil))
	assert.Empty(t, buf.String())
}
