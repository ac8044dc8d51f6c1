// Package genes provides the reference gene catalog: which genes may be used
// as targets or controls and where each gene lies in every supported genome
// build.
package genes

import (
	"bufio"
	"embed"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
	"github.com/jamesvanalstine/pypgx/internal/region"
)

//go:embed data/gene_table.tsv
var bundled embed.FS

const bundledPath = "data/gene_table.tsv"

// Role is the part a gene plays in depth normalization.
type Role string

const (
	RoleTarget  Role = "target"
	RoleControl Role = "control"
)

// Column names in the gene table.
const (
	colID      = "gene_id"
	colName    = "name"
	colType    = "type"
	colControl = "control"

	regionSuffix = "_region"
)

// Gene is one row of the gene table.
type Gene struct {
	ID      string // Catalog identifier (e.g., g10)
	Name    string // Gene symbol, lower case (e.g., cyp2d6)
	Type    string // target, control or paralog
	Target  bool
	Control bool
	regions map[Build]string
}

// HasRole returns true if the gene may be used in the given role.
func (g *Gene) HasRole(role Role) bool {
	switch role {
	case RoleTarget:
		return g.Target
	case RoleControl:
		return g.Control
	}
	return false
}

// Catalog is an immutable, validated gene table.
type Catalog struct {
	genes  map[string]*Gene
	names  []string
	builds []Build
}

// LoadDefault loads the gene table bundled with the binary.
func LoadDefault() (*Catalog, error) {
	f, err := bundled.Open(bundledPath)
	if err != nil {
		return nil, pgxerr.Configurationf("load gene table", "open bundled table: %v", err)
	}
	defer f.Close()
	return Load(f)
}

// LoadFile loads a gene table from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pgxerr.Configurationf("load gene table", "open %s: %v", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a tab-separated gene table. The first non-blank line must be
// the header; it must name at least the name, type and control columns.
func Load(r io.Reader) (*Catalog, error) {
	const op = "load gene table"

	scanner := bufio.NewScanner(r)
	var header []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		header = strings.Split(line, "\t")
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, pgxerr.Configurationf(op, "read header: %v", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i
	}
	if _, ok := cols[colName]; !ok {
		return nil, pgxerr.Configurationf(op, "missing header (no %q column)", colName)
	}
	for _, c := range []string{colType, colControl} {
		if _, ok := cols[c]; !ok {
			return nil, pgxerr.Configurationf(op, "header missing %q column", c)
		}
	}

	buildCols := make(map[Build]int)
	var builds []Build
	for i, h := range header {
		if b, ok := strings.CutSuffix(h, regionSuffix); ok && b != "" {
			buildCols[Build(b)] = i
			builds = append(builds, Build(b))
		}
	}
	sort.Slice(builds, func(i, j int) bool { return builds[i] < builds[j] })

	c := &Catalog{genes: make(map[string]*Gene), builds: builds}
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, pgxerr.Configurationf(op, "line %d: expected %d columns, got %d",
				lineNum, len(header), len(fields))
		}

		name := strings.ToLower(fields[cols[colName]])
		if name == "" {
			return nil, pgxerr.Configurationf(op, "line %d: empty gene name", lineNum)
		}
		if _, dup := c.genes[name]; dup {
			return nil, pgxerr.Configurationf(op, "line %d: duplicate gene %q", lineNum, name)
		}

		g := &Gene{
			Name:    name,
			Type:    fields[cols[colType]],
			Target:  fields[cols[colType]] == string(RoleTarget),
			Control: fields[cols[colControl]] == "yes",
			regions: make(map[Build]string, len(buildCols)),
		}
		if i, ok := cols[colID]; ok {
			g.ID = fields[i]
		}
		for b, i := range buildCols {
			if tok := fields[i]; tok != "" && tok != "." {
				g.regions[b] = tok
			}
		}

		c.genes[name] = g
		c.names = append(c.names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, pgxerr.Configurationf(op, "line %d: %v", lineNum, err)
	}

	sort.Strings(c.names)
	return c, nil
}

// Len returns the number of genes in the catalog.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Gene returns the gene with the given symbol, or nil.
func (c *Catalog) Gene(symbol string) *Gene {
	return c.genes[strings.ToLower(symbol)]
}

// Genes returns all genes sorted by name.
func (c *Catalog) Genes() []*Gene {
	out := make([]*Gene, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.genes[n])
	}
	return out
}

// Builds returns the genome builds that have a region column, sorted.
func (c *Catalog) Builds() []Build {
	return append([]Build(nil), c.builds...)
}

// Symbols returns the sorted names of the genes that may play role.
func (c *Catalog) Symbols(role Role) []string {
	var out []string
	for _, n := range c.names {
		if c.genes[n].HasRole(role) {
			out = append(out, n)
		}
	}
	return out
}

// Targets returns the sorted names of all target genes.
func (c *Catalog) Targets() []string { return c.Symbols(RoleTarget) }

// Controls returns the sorted names of all control genes.
func (c *Catalog) Controls() []string { return c.Symbols(RoleControl) }

// ValidateRole checks that symbol is in the catalog and may play role.
func (c *Catalog) ValidateRole(symbol string, role Role) error {
	const op = "validate gene"
	if role != RoleTarget && role != RoleControl {
		return pgxerr.Validationf(op, "unknown role %q", role)
	}
	g := c.Gene(symbol)
	if g == nil || !g.HasRole(role) {
		return pgxerr.Validationf(op, "%q is not among %s genes: %s",
			symbol, role, strings.Join(c.Symbols(role), ", "))
	}
	return nil
}

// LookupRegion returns the region of symbol in the given build.
func (c *Catalog) LookupRegion(symbol string, build Build) (region.Region, error) {
	const op = "lookup region"
	g := c.Gene(symbol)
	if g == nil {
		return region.Region{}, pgxerr.Validationf(op, "unknown gene %q", symbol)
	}
	tok, ok := g.regions[build]
	if !ok {
		return region.Region{}, pgxerr.Validationf(op, "genome build %q is not supported for %q", build, g.Name)
	}
	return region.Parse(tok)
}
