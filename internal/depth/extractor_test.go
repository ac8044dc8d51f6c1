package depth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesvanalstine/pypgx/internal/alignment"
	"github.com/jamesvanalstine/pypgx/internal/alignment/alignmenttest"
	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

func twoFiles() *alignmenttest.Source {
	return alignmenttest.New(map[string]*alignmenttest.File{
		"a.bam": {
			Contigs: []string{"chr12", "chr22"},
			Depth: map[string]map[int]int{
				"chr22": {101: 5, 103: 7},
				"chr12": {11: 2},
			},
		},
		"b.bam": {
			Contigs: []string{"chr12", "chr22"},
			Depth: map[string]map[int]int{
				"chr22": {102: 1},
			},
		},
	})
}

func TestExtract_Dense(t *testing.T) {
	e := NewExtractor(twoFiles())

	rows, err := e.Extract(context.Background(), []string{"a.bam", "b.bam"}, "chr22:100-104")
	require.NoError(t, err)

	// W rows, N depth values each, zero-depth positions included.
	require.Len(t, rows, 5)
	assert.Equal(t, []Row{
		{"chr22", 100, []int{0, 0}},
		{"chr22", 101, []int{5, 0}},
		{"chr22", 102, []int{0, 1}},
		{"chr22", 103, []int{7, 0}},
		{"chr22", 104, []int{0, 0}},
	}, rows)
}

func TestExtract_PassesMinMapQ(t *testing.T) {
	src := twoFiles()
	e := NewExtractor(src)
	_, err := e.Extract(context.Background(), []string{"a.bam"}, "chr22:100-100")
	require.NoError(t, err)

	q := src.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, 1, q[0].MinMapQ)
	assert.Equal(t, "chr22:100-100", q[0].Locus)
	assert.Equal(t, []string{"a.bam"}, q[0].Paths)
}

func TestExtract_WrongNamingIsIOError(t *testing.T) {
	e := NewExtractor(twoFiles())
	rows, err := e.Extract(context.Background(), []string{"a.bam", "b.bam"}, "22:100-104")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.Contains(t, err.Error(), "a.bam")
	assert.Contains(t, err.Error(), "22:100-104")
	assert.Nil(t, rows)
}

func TestExtract_ContigMissingFromOneFile(t *testing.T) {
	src := twoFiles()
	src.Files["b.bam"].Contigs = []string{"chr12"}
	rows, err := NewExtractor(src).Extract(context.Background(), []string{"a.bam", "b.bam"}, "chr22:100-104")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.Contains(t, err.Error(), "b.bam")
	assert.Contains(t, err.Error(), "chr22:100-104")
	assert.Nil(t, rows)
}

func TestExtract_NoRowsIsIOError(t *testing.T) {
	rows, err := NewExtractor(emptySource{}).Extract(context.Background(), []string{"a.bam"}, "chr22:100-104")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.Contains(t, err.Error(), "no depth rows for chr22:100-104")
	assert.Nil(t, rows)
}

// emptySource answers every depth query with no rows, as samtools does for
// a region on a contig it cannot find.
type emptySource struct{ alignment.Source }

func (emptySource) QueryDepth(context.Context, []string, string, int) (string, error) {
	return "", nil
}

func TestExtract_Unindexed(t *testing.T) {
	src := twoFiles()
	src.Files["b.bam"].Unindexed = true
	_, err := NewExtractor(src).Extract(context.Background(), []string{"a.bam", "b.bam"}, "chr22:100-104")
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.False(t, pgxerr.IsRetryable(err))
}

func TestExtract_ToolFailureIsIOError(t *testing.T) {
	src := twoFiles()
	src.Fail = map[string]error{"chr22:100-104": errors.New("exit status 1")}
	_, err := NewExtractor(src).Extract(context.Background(), []string{"a.bam"}, "chr22:100-104")
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestExtract_Timeout(t *testing.T) {
	src := twoFiles()
	src.Delay = time.Second
	e := NewExtractor(src)
	e.Timeout = 20 * time.Millisecond

	_, err := e.Extract(context.Background(), []string{"a.bam"}, "chr22:100-104")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.True(t, pgxerr.IsRetryable(err))
}

func TestExtract_ParentCancel(t *testing.T) {
	src := twoFiles()
	src.Delay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(src).Extract(ctx, []string{"a.bam"}, "chr22:100-104")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, pgxerr.IsRetryable(err))
}

func TestExtract_BadLocus(t *testing.T) {
	_, err := NewExtractor(twoFiles()).Extract(context.Background(), []string{"a.bam"}, "chr22:104-100")
	assert.ErrorIs(t, err, pgxerr.ErrFormat)
}

func TestExtractAll_CanonicalOrder(t *testing.T) {
	src := twoFiles()
	// Make the first region in canonical order the slowest to finish.
	src.LocusDelay = map[string]time.Duration{"chr12:10-12": 50 * time.Millisecond}
	e := NewExtractor(src)
	e.Workers = 4

	regions := []region.Region{
		region.MustParse("22:100-101"),
		region.MustParse("12:10-12"),
	}
	rows, err := e.ExtractAll(context.Background(), []string{"a.bam", "b.bam"}, regions, "chr")
	require.NoError(t, err)

	require.Len(t, rows, 5)
	var got []string
	for _, r := range rows {
		got = append(got, region.Region{Chrom: r.Chrom, Start: r.Pos, End: r.Pos}.String())
	}
	assert.Equal(t, []string{
		"chr12:10-10", "chr12:11-11", "chr12:12-12",
		"chr22:100-100", "chr22:101-101",
	}, got)
	assert.Equal(t, []int{2, 0}, rows[1].Depths)
}

func TestExtractAll_AllOrNothing(t *testing.T) {
	src := twoFiles()
	src.Fail = map[string]error{"chr22:100-101": errors.New("boom")}
	src.LocusDelay = map[string]time.Duration{"chr12:10-12": 200 * time.Millisecond}
	e := NewExtractor(src)
	e.Workers = 2

	start := time.Now()
	rows, err := e.ExtractAll(context.Background(), []string{"a.bam"}, []region.Region{
		region.MustParse("chr12:10-12"),
		region.MustParse("chr22:100-101"),
	}, "chr")
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, pgxerr.ErrIO)
	assert.Contains(t, err.Error(), "boom")
	// The slow sibling was cancelled rather than awaited.
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestExtractAll_ManyRegionsSingleWorker(t *testing.T) {
	src := twoFiles()
	e := NewExtractor(src)
	e.Workers = 1

	var regions []region.Region
	for _, tok := range []string{"chr22:110-110", "chr12:5-5", "chr22:100-100", "chr12:1-1"} {
		regions = append(regions, region.MustParse(tok))
	}
	rows, err := e.ExtractAll(context.Background(), []string{"a.bam"}, regions, "chr")
	require.NoError(t, err)

	var pos []int
	for _, r := range rows {
		pos = append(pos, r.Pos)
	}
	assert.Equal(t, []int{1, 5, 100, 110}, pos)
}

func TestParseRows(t *testing.T) {
	rows, err := ParseRows("1\t10\t3\t4\n1\t11\t0\t0\r\n\n", 2)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"1", 10, []int{3, 4}}, {"1", 11, []int{0, 0}}}, rows)

	_, err = ParseRows("1\t10\t3\n", 2)
	assert.ErrorContains(t, err, "expected 4 columns")
	_, err = ParseRows("1\tten\t3\t4\n", 2)
	assert.ErrorContains(t, err, "invalid position")
	_, err = ParseRows("1\t10\t3\tx\n", 2)
	assert.ErrorContains(t, err, "invalid depth")
}

func TestCheckDense(t *testing.T) {
	r := region.MustParse("1:10-11")
	assert.NoError(t, checkDense([]Row{{Pos: 10}, {Pos: 11}}, r))
	assert.Error(t, checkDense([]Row{{Pos: 10}}, r))
	assert.Error(t, checkDense([]Row{{Pos: 10}, {Pos: 12}}, r))
}
