// Package sdf builds SDF (sample depth format) text: dense per-position
// depth across samples over a target gene and a control gene.
package sdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jamesvanalstine/pypgx/internal/alignment"
	"github.com/jamesvanalstine/pypgx/internal/contig"
	"github.com/jamesvanalstine/pypgx/internal/depth"
	"github.com/jamesvanalstine/pypgx/internal/genes"
	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

// Request names the genes and files for one pipeline run.
type Request struct {
	Target  string
	Control string
	Files   []string
}

// Result is the output of a successful run.
type Result struct {
	Regions []region.Region // target and control regions, canonical order
	Prefix  string          // contig prefix used for queries
	Contigs []string        // union of contigs declared by the files
	Samples []string        // sample names per file, comma-joined, in file order
	Rows    []depth.Row     // depth rows in canonical order
}

// Pipeline turns a Request into depth rows:
// validate, resolve naming, build and sort regions, extract, concatenate.
type Pipeline struct {
	catalog   *genes.Catalog
	source    alignment.Source
	extractor *depth.Extractor
	// Build selects the region column of the catalog.
	Build genes.Build
	// HeaderWorkers bounds concurrent header reads. Zero means no limit.
	HeaderWorkers int
	logger        *zap.Logger
}

// NewPipeline creates a pipeline over an explicit catalog and source.
func NewPipeline(catalog *genes.Catalog, src alignment.Source) *Pipeline {
	return &Pipeline{
		catalog:   catalog,
		source:    src,
		extractor: depth.NewExtractor(src),
		Build:     genes.DefaultBuild,
		logger:    zap.NewNop(),
	}
}

// Extractor returns the depth extractor so callers can tune it.
func (p *Pipeline) Extractor() *depth.Extractor {
	return p.extractor
}

// SetLogger sets the logger for the pipeline and its extractor.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
	p.extractor.SetLogger(l)
}

// Run executes the pipeline. On any failure no rows are returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := p.validate(req); err != nil {
		return nil, err
	}

	prefix, contigs, samples, err := p.resolveNaming(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	p.logger.Info("resolved contig naming",
		zap.Strings("samples", samples),
		zap.Strings("contigs", contigs),
		zap.String("prefix", prefix))

	regions, err := p.buildRegions(req)
	if err != nil {
		return nil, err
	}
	p.logger.Info("extracting depth",
		zap.Stringers("regions", regions),
		zap.Int("files", len(req.Files)))

	rows, err := p.extractor.ExtractAll(ctx, req.Files, regions, prefix)
	if err != nil {
		return nil, err
	}

	p.logger.Info("extracted depth",
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Regions: regions,
		Prefix:  prefix,
		Contigs: contigs,
		Samples: samples,
		Rows:    rows,
	}, nil
}

func (p *Pipeline) validate(req Request) error {
	if err := p.catalog.ValidateRole(req.Target, genes.RoleTarget); err != nil {
		return err
	}
	if err := p.catalog.ValidateRole(req.Control, genes.RoleControl); err != nil {
		return err
	}
	if len(req.Files) == 0 {
		return pgxerr.Validationf("validate request", "at least one alignment file is required")
	}
	return nil
}

// resolveNaming reads every file header. It returns only after all headers
// are read, since the prefix applies to every later query.
func (p *Pipeline) resolveNaming(ctx context.Context, files []string) (prefix string, contigs, samples []string, err error) {
	perFile := make([][]string, len(files))
	perFileSamples := make([][]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if p.HeaderWorkers > 0 {
		g.SetLimit(p.HeaderWorkers)
	}
	for i, f := range files {
		g.Go(func() error {
			names, sm, err := p.source.ReadHeader(gctx, f)
			if err != nil {
				return pgxerr.WrapIO("read header", fmt.Errorf("%s: %w", f, err))
			}
			perFile[i] = names
			perFileSamples[i] = sm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, nil, err
	}

	samples = make([]string, len(files))
	for i, sm := range perFileSamples {
		samples[i] = strings.Join(sm, ",")
	}
	contigs = contig.Union(perFile)
	return contig.DetectPrefix(contigs), contigs, samples, nil
}

func (p *Pipeline) buildRegions(req Request) ([]region.Region, error) {
	var regions []region.Region
	for _, sym := range []string{req.Target, req.Control} {
		r, err := p.catalog.LookupRegion(sym, p.Build)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return region.Sort(regions), nil
}
