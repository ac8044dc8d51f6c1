package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jamesvanalstine/pypgx/internal/alignment"
	"github.com/jamesvanalstine/pypgx/internal/depth"
	"github.com/jamesvanalstine/pypgx/internal/duckdb"
	"github.com/jamesvanalstine/pypgx/internal/genes"
	"github.com/jamesvanalstine/pypgx/internal/sdf"
)

// Alignment backends.
const (
	backendHTS      = "hts"
	backendSamtools = "samtools"
)

type bam2sdfOptions struct {
	output string
	dbPath string
}

func newBam2sdfCmd(logger func() *zap.Logger) *cobra.Command {
	var opts bam2sdfOptions

	cmd := &cobra.Command{
		Use:   "bam2sdf <target> <control> <bam>...",
		Short: "Compute per-base depth over a target and a control gene",
		Long: `Compute per-base read depth for every position of the target gene and the
control gene across one or more indexed BAM files.

Output is SDF text: chromosome, position and one depth column per BAM file,
tab-delimited with no header. Regions are written in chromosome order.
Nothing is written unless every region succeeds.`,
		Example: `  pypgx bam2sdf cyp2d6 vdr sample1.bam sample2.bam > out.sdf
  pypgx bam2sdf --build hg38 -o out.sdf cyp2d6 egfr *.bam
  pypgx bam2sdf --backend samtools --duckdb runs.duckdb cyp2a6 ryr1 a.bam`,
		Args: usageArgs(cobra.MinimumNArgs(3)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{
				keyBuild:        "build",
				keyBackend:      "backend",
				keyWorkers:      "workers",
				keyTimeout:      "timeout",
				keyMinMapQ:      "min-mapq",
				keySamtoolsPath: "samtools",
				keyGeneTable:    "gene-table",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBam2sdf(cmd, args, opts, logger())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.StringVar(&opts.dbPath, "duckdb", "", "Also store the run in this DuckDB database")
	f.String("build", "hg19", "Genome build: hg19 or hg38")
	f.String("backend", backendHTS, "Alignment backend: hts or samtools")
	f.Int("workers", 0, "Regions queried concurrently (default: number of CPUs)")
	f.Duration("timeout", depth.DefaultTimeout, "Deadline for each region query")
	f.Int("min-mapq", alignment.DefaultMinMapQ, "Minimum mapping quality of counted reads")
	f.String("samtools", "", "samtools executable for the samtools backend (default: samtools on $PATH)")
	f.String("gene-table", "", "Gene table TSV (default: bundled table)")

	return cmd
}

// bindFlags binds config keys to command flags so that a flag set on the
// command line overrides the config file.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

func runBam2sdf(cmd *cobra.Command, args []string, opts bam2sdfOptions, logger *zap.Logger) error {
	build, err := genes.ParseBuild(viper.GetString(keyBuild))
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(viper.GetString(keyGeneTable))
	if err != nil {
		return err
	}
	src, err := newSource(viper.GetString(keyBackend), viper.GetString(keySamtoolsPath), logger)
	if err != nil {
		return err
	}

	p := sdf.NewPipeline(catalog, src)
	p.Build = build
	p.SetLogger(logger)
	ex := p.Extractor()
	ex.Workers = viper.GetInt(keyWorkers)
	ex.MinMapQ = viper.GetInt(keyMinMapQ)
	ex.Timeout = viper.GetDuration(keyTimeout)

	req := sdf.Request{Target: args[0], Control: args[1], Files: args[2:]}
	res, err := p.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	if opts.dbPath != "" {
		id, err := saveRun(opts.dbPath, req, build, res)
		if err != nil {
			return err
		}
		logger.Info("stored run", zap.String("db", opts.dbPath), zap.Int("run_id", id))
	}

	if opts.output == "" {
		return sdf.NewWriter(cmd.OutOrStdout()).WriteAll(res.Rows)
	}
	return writeFileAtomic(opts.output, func(w io.Writer) error {
		return sdf.NewWriter(w).WriteAll(res.Rows)
	})
}

func loadCatalog(path string) (*genes.Catalog, error) {
	if path == "" {
		return genes.LoadDefault()
	}
	return genes.LoadFile(path)
}

func newSource(backend, samtoolsPath string, logger *zap.Logger) (alignment.Source, error) {
	switch backend {
	case backendHTS:
		h := alignment.NewHTS()
		h.SetLogger(logger)
		return h, nil
	case backendSamtools:
		s := alignment.NewSamtools(samtoolsPath)
		s.SetLogger(logger)
		return s, nil
	default:
		return nil, usageError{fmt.Errorf("unknown backend %q (use %s or %s)", backend, backendHTS, backendSamtools)}
	}
}

func saveRun(path string, req sdf.Request, build genes.Build, res *sdf.Result) (int, error) {
	files, err := duckdb.StatRunFiles(req.Files, res.Samples)
	if err != nil {
		return 0, err
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return store.WriteRun(duckdb.Run{
		Target:  req.Target,
		Control: req.Control,
		Build:   string(build),
		Prefix:  res.Prefix,
		Files:   files,
	}, res.Rows)
}

// writeFileAtomic writes to a temporary file next to path and renames it
// into place once write succeeds.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpPath := f.Name()

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
