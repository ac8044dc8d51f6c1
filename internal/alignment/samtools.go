package alignment

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
)

// waitDelay bounds how long a killed samtools may hold its output pipes.
const waitDelay = 5 * time.Second

// Samtools runs the samtools binary as a subprocess.
type Samtools struct {
	// Path is the samtools executable. Empty means "samtools" on $PATH.
	Path   string
	logger *zap.Logger
}

// NewSamtools creates a samtools-backed source.
func NewSamtools(path string) *Samtools {
	return &Samtools{Path: path, logger: zap.NewNop()}
}

// SetLogger sets the logger for debug messages.
func (s *Samtools) SetLogger(l *zap.Logger) {
	s.logger = l
}

func (s *Samtools) bin() string {
	if s.Path == "" {
		return "samtools"
	}
	return s.Path
}

// run executes samtools and returns its standard output. A context error is
// returned as is so callers can tell a deadline from a tool failure.
func (s *Samtools) run(ctx context.Context, op string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, s.bin(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	s.logger.Debug("exec samtools", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", pgxerr.WrapIO(op, err)
	}
	return stdout.String(), nil
}

func (s *Samtools) header(ctx context.Context, path string) (string, error) {
	return s.run(ctx, "read bam header", "view", "-H", path)
}

// ReadHeaderContigs implements Source.
func (s *Samtools) ReadHeaderContigs(ctx context.Context, path string) ([]string, error) {
	contigs, _, err := s.ReadHeader(ctx, path)
	return contigs, err
}

// ReadHeader implements Source with a single "samtools view -H".
func (s *Samtools) ReadHeader(ctx context.Context, path string) (contigs, samples []string, err error) {
	text, err := s.header(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	contigs, samples = parseHeaderText(text)
	return contigs, samples, nil
}

// QueryDepth implements Source using "samtools depth -a", which reports
// every position of the region including zero-depth ones.
func (s *Samtools) QueryDepth(ctx context.Context, paths []string, locus string, minMapQ int) (string, error) {
	args := []string{"depth", "-a", "-Q", strconv.Itoa(minMapQ), "-r", locus}
	args = append(args, paths...)
	return s.run(ctx, "query depth "+locus, args...)
}
