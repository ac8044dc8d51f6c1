package alignment

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"go.uber.org/zap"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

// skipFlags are the alignments never counted towards depth.
const skipFlags = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate

// HTS reads BAM files directly. Depth queries require a BAI index next to
// each file.
type HTS struct {
	// Readers is the BGZF decompression concurrency per open file. Zero
	// means GOMAXPROCS.
	Readers int
	logger  *zap.Logger
}

// NewHTS creates a native BAM source.
func NewHTS() *HTS {
	return &HTS{Readers: 1, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning and debug messages.
func (h *HTS) SetLogger(l *zap.Logger) {
	h.logger = l
}

// bamFile is an open BAM file and its reader.
type bamFile struct {
	f  *os.File
	br *bam.Reader
}

func (b *bamFile) Close() error {
	err := b.br.Close()
	if cerr := b.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (h *HTS) open(path string) (*bamFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pgxerr.WrapIO("open bam", err)
	}
	br, err := bam.NewReader(f, h.Readers)
	if err != nil {
		f.Close()
		return nil, pgxerr.WrapIO("read bam header", fmt.Errorf("%s: %w", path, err))
	}
	return &bamFile{f: f, br: br}, nil
}

// ReadHeaderContigs implements Source.
func (h *HTS) ReadHeaderContigs(ctx context.Context, path string) ([]string, error) {
	contigs, _, err := h.ReadHeader(ctx, path)
	return contigs, err
}

// ReadHeader implements Source. The file is opened once for both contigs
// and samples.
func (h *HTS) ReadHeader(ctx context.Context, path string) (contigs, samples []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b, err := h.open(path)
	if err != nil {
		return nil, nil, err
	}
	defer b.Close()

	hdr := b.br.Header()
	for _, r := range hdr.Refs() {
		contigs = append(contigs, r.Name())
	}
	smTag := sam.NewTag("SM")
	for _, rg := range hdr.RGs() {
		if sm := rg.Get(smTag); sm != "" && !contains(samples, sm) {
			samples = append(samples, sm)
		}
	}
	return contigs, samples, nil
}

// QueryDepth implements Source.
func (h *HTS) QueryDepth(ctx context.Context, paths []string, locus string, minMapQ int) (string, error) {
	r, err := region.Parse(locus)
	if err != nil {
		return "", err
	}

	depths := make([][]int, len(paths))
	for i, path := range paths {
		d, err := h.fileDepth(ctx, path, r, minMapQ)
		if err != nil {
			return "", err
		}
		h.logger.Debug("read depth", zap.String("bam", path), zap.String("locus", locus))
		depths[i] = d
	}

	var sb strings.Builder
	writeDense(&sb, r, depths)
	return sb.String(), nil
}

// fileDepth returns per-position depth over r for one file. A file whose
// header does not declare r.Chrom is an error.
func (h *HTS) fileDepth(ctx context.Context, path string, r region.Region, minMapQ int) ([]int, error) {
	depth := make([]int, r.Width())

	b, err := h.open(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	ref := findRef(b.br.Header(), r.Chrom)
	if ref == nil {
		return nil, pgxerr.IOf("query depth", "%s does not declare contig %s (locus %s)", path, r.Chrom, r)
	}

	idx, err := readIndex(path)
	if err != nil {
		return nil, err
	}
	// Indexes built on the fly stop at the last reference with reads.
	if ref.ID() >= idx.NumRefs() {
		return depth, nil
	}

	// Index coordinates are 0-based half-open.
	chunks, err := idx.Chunks(ref, r.Start-1, r.End)
	if err != nil {
		return nil, pgxerr.WrapIO("query bam index", fmt.Errorf("%s %s: %w", path, r, err))
	}
	if len(chunks) == 0 {
		return depth, nil
	}

	it, err := bam.NewIterator(b.br, chunks)
	if err != nil {
		return nil, pgxerr.WrapIO("seek bam", fmt.Errorf("%s %s: %w", path, r, err))
	}
	defer it.Close()

	acc := newAccumulator(r, minMapQ, depth)
	for n := 0; it.Next(); n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := it.Record()
		if rec.Ref == nil || rec.Ref.ID() != ref.ID() {
			continue
		}
		acc.add(rec)
	}
	if err := it.Error(); err != nil {
		return nil, pgxerr.WrapIO("read bam records", fmt.Errorf("%s %s: %w", path, r, err))
	}
	return depth, nil
}

// indexPaths returns the candidate BAI locations for a BAM file.
func indexPaths(path string) []string {
	paths := []string{path + ".bai"}
	if trimmed, ok := strings.CutSuffix(path, ".bam"); ok {
		paths = append(paths, trimmed+".bai")
	}
	return paths
}

func readIndex(path string) (*bam.Index, error) {
	for _, p := range indexPaths(path) {
		f, err := os.Open(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, pgxerr.WrapIO("open bam index", err)
		}
		idx, err := bam.ReadIndex(f)
		f.Close()
		if err != nil {
			return nil, pgxerr.WrapIO("read bam index", fmt.Errorf("%s: %w", p, err))
		}
		return idx, nil
	}
	return nil, pgxerr.IOf("open bam index", "no index found for %s (expected %s)",
		path, strings.Join(indexPaths(path), " or "))
}

func findRef(h *sam.Header, name string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == name {
			return ref
		}
	}
	return nil
}

// accumulator counts aligned bases per reference position over a region.
type accumulator struct {
	r       region.Region
	minMapQ int
	depth   []int
}

func newAccumulator(r region.Region, minMapQ int, depth []int) *accumulator {
	return &accumulator{r: r, minMapQ: minMapQ, depth: depth}
}

// add counts the reference positions rec aligns to. Deleted and skipped
// reference bases are not counted.
func (a *accumulator) add(rec *sam.Record) {
	if rec.Flags&skipFlags != 0 || int(rec.MapQ) < a.minMapQ {
		return
	}
	pos := rec.Pos + 1 // 1-based
	for _, op := range rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			lo, hi := max(pos, a.r.Start), min(pos+n-1, a.r.End)
			for p := lo; p <= hi; p++ {
				a.depth[p-a.r.Start]++
			}
			pos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			pos += n
		}
		if pos > a.r.End {
			return
		}
	}
}

// writeDense writes one row per position of r with a depth column per file.
func writeDense(w io.StringWriter, r region.Region, depths [][]int) {
	buf := make([]byte, 0, 64)
	for i := 0; i < r.Width(); i++ {
		buf = buf[:0]
		buf = append(buf, r.Chrom...)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(r.Start+i), 10)
		for _, d := range depths {
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(d[i]), 10)
		}
		buf = append(buf, '\n')
		w.WriteString(string(buf))
	}
}
