package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliGeneTable = "gene_id\tname\ttype\tcontrol\thg19_region\thg38_region\n" +
	"g1\tgenea\ttarget\tno\tchr22:100-102\tchr22:200-201\n" +
	"g2\tgeneb\tcontrol\tyes\tchr12:10-11\tchr12:20-21\n"

// fakeDepthScript answers "view -H" with a chr-prefixed header and
// "depth -a -Q N -r LOCUS files..." with dense rows where file i has
// depth i.
const fakeDepthScript = `#!/bin/sh
if [ "$1" = "view" ]; then
  printf '@HD\tVN:1.6\n@SQ\tSN:chr12\tLN:133851895\n@SQ\tSN:chr22\tLN:51304566\n@RG\tID:rg1\tSM:S1\n'
  exit 0
fi
locus=$6
chrom=${locus%%:*}
range=${locus#*:}
shift 6
awk -v c="$chrom" -v s="${range%-*}" -v e="${range#*-}" -v n="$#" \
  'BEGIN { for (p = s; p <= e; p++) { l = c "\t" p; for (i = 1; i <= n; i++) l = l "\t" i; print l } }'
`

const wantSDF = "chr12\t10\t1\t2\n" +
	"chr12\t11\t1\t2\n" +
	"chr22\t100\t1\t2\n" +
	"chr22\t101\t1\t2\n" +
	"chr22\t102\t1\t2\n"

type cliEnv struct {
	dir      string
	samtools string
	table    string
	bams     []string
}

func newCLIEnv(t *testing.T, script string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	env := &cliEnv{
		dir:      dir,
		samtools: filepath.Join(dir, "samtools"),
		table:    filepath.Join(dir, "genes.tsv"),
	}
	require.NoError(t, os.WriteFile(env.samtools, []byte(script), 0o755))
	require.NoError(t, os.WriteFile(env.table, []byte(cliGeneTable), 0o644))
	for _, name := range []string{"a.bam", "b.bam"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("bam"), 0o644))
		env.bams = append(env.bams, p)
	}
	return env
}

func (e *cliEnv) bam2sdfArgs(extra ...string) []string {
	args := []string{"bam2sdf", "--backend", "samtools", "--samtools", e.samtools, "--gene-table", e.table}
	args = append(args, extra...)
	args = append(args, "genea", "geneb")
	return append(args, e.bams...)
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "dev")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"missing bams", []string{"bam2sdf", "cyp2d6", "vdr"}},
		{"unknown flag", []string{"bam2sdf", "--nope", "cyp2d6", "vdr", "a.bam"}},
		{"bad role", []string{"genes", "--role", "paralog"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}

func TestBam2sdf_Stdout(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)
	code, out, stderr := runCLI(t, env.bam2sdfArgs()...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, wantSDF, out)
}

func TestBam2sdf_OutputFile(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)
	outPath := filepath.Join(env.dir, "out.sdf")

	code, out, stderr := runCLI(t, env.bam2sdfArgs("-o", outPath)...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Empty(t, out)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, wantSDF, string(got))

	// No temporary files left behind.
	matches, err := filepath.Glob(filepath.Join(env.dir, ".out.sdf.*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBam2sdf_FailureWritesNothing(t *testing.T) {
	script := strings.Replace(fakeDepthScript, "locus=$6",
		"echo '[depth] cannot load index' >&2\nexit 1\nlocus=$6", 1)
	env := newCLIEnv(t, script)
	outPath := filepath.Join(env.dir, "out.sdf")

	code, out, stderr := runCLI(t, env.bam2sdfArgs("-o", outPath)...)
	assert.Equal(t, ExitError, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "cannot load index")
	assert.NoFileExists(t, outPath)
}

func TestBam2sdf_InvalidGenes(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)
	args := []string{"bam2sdf", "--gene-table", env.table, "geneb", "genea", env.bams[0]}
	code, out, stderr := runCLI(t, args...)
	assert.Equal(t, ExitError, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "target genes: genea")
}

func TestBam2sdf_UnknownBackend(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)
	code, _, stderr := runCLI(t, "bam2sdf", "--backend", "bwa", "genea", "geneb", env.bams[0])
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, `unknown backend "bwa"`)
}

func TestBam2sdf_DuckDBRoundTrip(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)
	db := filepath.Join(env.dir, "runs.duckdb")

	code, _, stderr := runCLI(t, env.bam2sdfArgs("--duckdb", db)...)
	require.Equal(t, ExitSuccess, code, stderr)

	code, out, stderr := runCLI(t, "query", db)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "genea")
	assert.Contains(t, out, "geneb")
	assert.Contains(t, out, env.bams[1])

	code, out, stderr = runCLI(t, "query", db, "1")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, wantSDF, out)

	code, out, stderr = runCLI(t, "query", db, "1", "22:101-102")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "chr22\t101\t1\t2\nchr22\t102\t1\t2\n", out)

	code, out, stderr = runCLI(t, "query", "--summary", "--gene-table", env.table, db, "1")
	require.Equal(t, ExitSuccess, code, stderr)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Regexp(t, `^geneb\s+\S+a\.bam\s+S1\s+2\s+1\.00$`, lines[1])
	assert.Regexp(t, `^geneb\s+\S+b\.bam\s+S1\s+2\s+2\.00$`, lines[2])
	assert.Regexp(t, `^genea\s+\S+a\.bam\s+S1\s+3\s+1\.00$`, lines[3])

	code, _, _ = runCLI(t, "query", db, "one")
	assert.Equal(t, ExitUsage, code)
}

func TestGenes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, stderr := runCLI(t, "genes")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "cyp2d6")
	assert.Contains(t, out, "vdr")

	code, out, stderr = runCLI(t, "genes", "--role", "control")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "vdr")
	assert.Contains(t, out, "egfr")
	assert.NotContains(t, out, "cyp2d6")
}

func TestConfigSetGet(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)

	code, out, stderr := runCLI(t, "config", "set", "build", "hg38")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, filepath.Join(env.dir, configName))

	code, out, _ = runCLI(t, "config", "get", "build")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "hg38\n", out)

	// The configured build selects the region column.
	code, out, stderr = runCLI(t, "genes", "--gene-table", env.table)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "chr22:200-201")

	// A flag overrides the config file.
	code, out, _ = runCLI(t, "genes", "--gene-table", env.table, "--build", "hg19")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "chr22:100-102")

	code, _, _ = runCLI(t, "config", "set", "colour", "blue")
	assert.Equal(t, ExitUsage, code)
}

func TestConfig_GeneTableFromConfig(t *testing.T) {
	env := newCLIEnv(t, fakeDepthScript)
	cfg := filepath.Join(env.dir, "pypgx.yaml")
	yml := "backend: samtools\ngene_table: " + env.table + "\nsamtools:\n  path: " + env.samtools + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(yml), 0o644))

	args := append([]string{"--config", cfg, "bam2sdf", "genea", "geneb"}, env.bams...)
	code, out, stderr := runCLI(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, wantSDF, out)
}
