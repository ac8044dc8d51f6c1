package genes

import (
	"strings"

	"github.com/jamesvanalstine/pypgx/internal/pgxerr"
)

// Build names a reference genome build. It selects the <build>_region
// column of the gene table.
type Build string

const (
	HG19 Build = "hg19"
	HG38 Build = "hg38"
)

// DefaultBuild is the build used when none is configured.
const DefaultBuild = HG19

// ParseBuild accepts UCSC and GRC build names.
func ParseBuild(s string) (Build, error) {
	switch strings.ToLower(s) {
	case "hg19", "grch37", "b37":
		return HG19, nil
	case "hg38", "grch38":
		return HG38, nil
	}
	return "", pgxerr.Validationf("parse build", "unknown genome build %q (use hg19 or hg38)", s)
}
