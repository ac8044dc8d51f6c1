package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesvanalstine/pypgx/internal/genes"
)

func newGenesCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "genes",
		Short: "List genes in the gene table",
		Long:  "List target and control genes with their regions in the configured genome build.",
		Example: `  pypgx genes
  pypgx genes --role control
  pypgx genes --build hg38 --gene-table genes.tsv`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{
				keyBuild:     "build",
				keyGeneTable: "gene-table",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			build, err := genes.ParseBuild(viper.GetString(keyBuild))
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(viper.GetString(keyGeneTable))
			if err != nil {
				return err
			}

			var filter genes.Role
			switch role {
			case "":
			case string(genes.RoleTarget), string(genes.RoleControl):
				filter = genes.Role(role)
			default:
				return usageError{fmt.Errorf("unknown role %q (use target or control)", role)}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tTYPE\tTARGET\tCONTROL\t%s\n", build)
			for _, g := range catalog.Genes() {
				if filter != "" && !g.HasRole(filter) {
					continue
				}
				loc := "."
				if r, err := catalog.LookupRegion(g.Name, build); err == nil {
					loc = r.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.Name, g.Type, yesNo(g.Target), yesNo(g.Control), loc)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Only list genes usable in this role: target or control")
	cmd.Flags().String("build", "hg19", "Genome build: hg19 or hg38")
	cmd.Flags().String("gene-table", "", "Gene table TSV (default: bundled table)")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
