package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesvanalstine/pypgx/internal/depth"
	"github.com/jamesvanalstine/pypgx/internal/duckdb"
	"github.com/jamesvanalstine/pypgx/internal/genes"
	"github.com/jamesvanalstine/pypgx/internal/region"
	"github.com/jamesvanalstine/pypgx/internal/sdf"
)

func newQueryCmd() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "query <db> [run-id [region]]",
		Short: "Read runs stored with bam2sdf --duckdb",
		Long: `With only a database, list the stored runs. With a run ID, print the stored
depth rows as SDF text, optionally limited to a region (chr22:42522500-42526883
or 22:42522500-42526883). With --summary, print mean depth per gene and file
instead.`,
		Example: `  pypgx query runs.duckdb
  pypgx query runs.duckdb 1 chr22:42522500-42526883
  pypgx query --summary runs.duckdb 1`,
		Args: usageArgs(cobra.RangeArgs(1, 3)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{keyGeneTable: "gene-table"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return listRuns(out, store)
			}

			id, err := strconv.Atoi(args[1])
			if err != nil {
				return usageError{fmt.Errorf("invalid run ID %q", args[1])}
			}
			var r region.Region
			if len(args) == 3 {
				if r, err = region.Parse(args[2]); err != nil {
					return err
				}
			}
			rows, err := store.Depth(id, r)
			if err != nil {
				return err
			}
			if !summary {
				return sdf.NewWriter(out).WriteAll(rows)
			}

			run, err := store.Run(id)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(viper.GetString(keyGeneTable))
			if err != nil {
				return err
			}
			build, err := genes.ParseBuild(run.Build)
			if err != nil {
				return err
			}
			return writeSummary(out, run, catalog.Index(build), rows)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Print mean depth per gene and file")
	cmd.Flags().String("gene-table", "", "Gene table TSV used to name regions (default: bundled table)")

	return cmd
}

func listRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTARGET\tCONTROL\tBUILD\tFILES")
	for _, run := range runs {
		paths := make([]string, len(run.Files))
		for i, f := range run.Files {
			paths[i] = f.Path
			if f.Stale() {
				paths[i] += " (changed)"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", run.ID, run.CreatedAt.Format(time.RFC3339),
			run.Target, run.Control, run.Build, strings.Join(paths, ", "))
	}
	return tw.Flush()
}

// geneDepth accumulates depth over the rows attributed to one gene label.
type geneDepth struct {
	label     string
	positions int
	sums      []int
}

// writeSummary prints mean depth per gene and file. Rows outside every
// gene of the index are grouped under ".".
func writeSummary(w io.Writer, run duckdb.Run, ix *genes.Index, rows []depth.Row) error {
	var (
		groups []*geneDepth
		byName = make(map[string]*geneDepth)
	)
	for _, row := range rows {
		label := "."
		if gs := ix.At(row.Chrom, row.Pos); len(gs) > 0 {
			names := make([]string, len(gs))
			for i, g := range gs {
				names[i] = g.Name
			}
			label = strings.Join(names, ",")
		}
		g := byName[label]
		if g == nil {
			g = &geneDepth{label: label, sums: make([]int, len(run.Files))}
			byName[label] = g
			groups = append(groups, g)
		}
		g.positions++
		for i, d := range row.Depths {
			g.sums[i] += d
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GENE\tFILE\tSAMPLE\tPOSITIONS\tMEAN_DEPTH")
	for _, g := range groups {
		for i, f := range run.Files {
			mean := float64(g.sums[i]) / float64(g.positions)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\n", g.label, f.Path, f.Sample, g.positions, mean)
		}
	}
	return tw.Flush()
}
