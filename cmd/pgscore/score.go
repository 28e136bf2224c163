package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openpgx/pgscore/internal/duckdb"
	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/genotype"
	"github.com/openpgx/pgscore/internal/liftover"
	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/output"
	"github.com/openpgx/pgscore/internal/score"
	"github.com/openpgx/pgscore/internal/vcf"
)

func runScore(args []string) int {
	fs := flag.NewFlagSet("score", flag.ExitOnError)

	var (
		modelPath   string
		modelBuild  string
		callBuild   string
		chainPath   string
		workers     int
		topN        int
		perSitePath string
		resultsDB   string
		dedupe      bool
		minCoverage float64
		verbose     bool
	)

	fs.StringVar(&modelPath, "model", "", "PGS scoring file (required)")
	fs.StringVar(&modelPath, "m", "", "PGS scoring file (shorthand)")
	fs.StringVar(&modelBuild, "model-build", viper.GetString("model.build"), "Build assumed when the scoring file declares none")
	fs.StringVar(&callBuild, "build", viper.GetString("callset.build"), "Genome build of the VCF call set")
	fs.StringVar(&chainPath, "chain", "", "Chain file for model-to-callset build translation")
	fs.IntVar(&workers, "workers", viper.GetInt("score.workers"), "Parallel site-evaluation workers (1 = serial)")
	fs.IntVar(&topN, "top", viper.GetInt("score.top"), "Number of top contributing sites in the report")
	fs.StringVar(&perSitePath, "per-site", "", "Write per-site detail TSV to this path")
	fs.StringVar(&resultsDB, "save", "", "Persist the run into this DuckDB database")
	fs.BoolVar(&dedupe, "dedupe", false, "Keep only the most recent record per coordinate")
	fs.Float64Var(&minCoverage, "min-coverage", 0, "Refuse to present the score when matched/total falls below this ratio")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Compute a polygenic score from a scoring file and a VCF call set.

Usage:
  pgscore score [options] <vcf-file>

Arguments:
  <vcf-file>  Personal genotype VCF (plain or gzipped, '-' for stdin)

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  pgscore score --model PGS000906.txt.gz genome.vcf.gz
  pgscore score --model PGS000906.txt.gz --chain hg19ToHg38.over.chain.gz genome.vcf.gz
  pgscore score --model PGS000906.txt.gz --per-site sites.tsv --save runs.duckdb genome.vcf.gz
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if modelPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --model is required\n\n")
		fs.Usage()
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: VCF file argument required\n\n")
		fs.Usage()
		return ExitUsage
	}
	vcfPath := fs.Arg(0)

	defaultBuild, err := genome.ParseBuild(modelBuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsage
	}
	indexBuild, err := genome.ParseBuild(callBuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsage
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	// Load the scoring model.
	m, err := model.Load(modelPath, defaultBuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scoring file: %v\n", err)
		return ExitError
	}
	fmt.Fprintf(os.Stderr, "Loaded %d sites from %s", m.Len(), modelPath)
	if m.SkippedRows > 0 {
		fmt.Fprintf(os.Stderr, " (%d malformed rows skipped)", m.SkippedRows)
	}
	fmt.Fprintf(os.Stderr, " [build %s]\n", m.Build)

	// Build the genotype index.
	parser, err := vcf.NewParser(vcfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
		}
		return ExitError
	}
	defer parser.Close()

	index := genotype.NewIndex(indexBuild)
	index.SetLogger(logger)
	if err := index.AddSource(parser); err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing call set: %v\n", err)
		return ExitError
	}
	if dedupe {
		index.Dedupe()
	}
	fmt.Fprintf(os.Stderr, "Indexed %d call-set records", index.RecordCount())
	if index.SkippedRows() > 0 {
		fmt.Fprintf(os.Stderr, " (%d malformed rows skipped)", index.SkippedRows())
	}
	fmt.Fprintf(os.Stderr, " [build %s]\n", indexBuild)

	agg := score.NewAggregator(index)
	agg.SetLogger(logger)
	agg.SetWorkers(workers)

	if chainPath != "" {
		translator, err := liftover.Open(chainPath, m.Build, indexBuild)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading chain file: %v\n", err)
			return ExitError
		}
		agg.SetTranslator(translator)
	} else if m.Build != indexBuild {
		fmt.Fprintf(os.Stderr, "Warning: model build %s differs from call-set build %s and no --chain was given; cross-build sites will be unresolvable\n",
			m.Build, indexBuild)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := agg.Score(ctx, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	if minCoverage > 0 && result.Coverage() < minCoverage {
		logger.Warn("coverage below threshold, score is not meaningful",
			zap.Float64("coverage", result.Coverage()),
			zap.Float64("threshold", minCoverage))
		fmt.Fprintf(os.Stderr, "Coverage %.2f%% is below the --min-coverage threshold (%.2f%%); refusing to report a score.\n",
			100*result.Coverage(), 100*minCoverage)
		fmt.Fprintf(os.Stderr, "Matched %d of %d sites (%d unresolvable).\n",
			result.SitesMatched, result.SitesTotal, result.SitesUnresolvable)
		return ExitError
	}

	report := output.NewReportWriter(os.Stdout, topN)
	if err := report.Write(m, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return ExitError
	}

	if perSitePath != "" {
		if code := writePerSite(perSitePath, result); code != ExitSuccess {
			return code
		}
		fmt.Fprintf(os.Stderr, "Per-site detail written to %s\n", perSitePath)
	}

	if resultsDB != "" {
		store, err := duckdb.Open(resultsDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening results database: %v\n", err)
			return ExitError
		}
		defer store.Close()

		runID, err := store.SaveResult(m, result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error persisting run: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(os.Stderr, "Run persisted as %s in %s\n", runID, resultsDB)
	}

	return ExitSuccess
}

func writePerSite(path string, result *score.Result) int {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating per-site file: %v\n", err)
		return ExitError
	}
	defer f.Close()

	tw := output.NewTabWriter(f)
	if err := tw.WriteHeader(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing per-site header: %v\n", err)
		return ExitError
	}
	if err := tw.WriteAll(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing per-site detail: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// runRuns lists persisted score runs from a DuckDB results database.
func runRuns(args []string) int {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	var resultsDB string
	fs.StringVar(&resultsDB, "db", "", "DuckDB results database (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `List previously persisted score runs.

Usage:
  pgscore runs --db runs.duckdb
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if resultsDB == "" {
		fmt.Fprintf(os.Stderr, "Error: --db is required\n")
		return ExitUsage
	}

	store, err := duckdb.Open(resultsDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening results database: %v\n", err)
		return ExitError
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		return ExitError
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return ExitSuccess
	}

	fmt.Printf("%-40s %-12s %-8s %12s %9s %9s\n", "RUN", "MODEL", "BUILD", "SCORE", "MATCHED", "TOTAL")
	for _, r := range runs {
		fmt.Printf("%-40s %-12s %-8s %12.4f %9d %9d\n",
			r.RunID, r.ModelID, r.GenomeBuild, r.Score, r.SitesMatched, r.SitesTotal)
	}
	return ExitSuccess
}
