package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/liftover"
	"github.com/openpgx/pgscore/internal/model"
)

func runLiftover(args []string) int {
	fs := flag.NewFlagSet("liftover", flag.ExitOnError)

	var (
		inputPath  string
		outputPath string
		chainPath  string
		fromBuild  string
		toBuild    string
	)

	fs.StringVar(&inputPath, "input", "", "Input scoring file (required)")
	fs.StringVar(&inputPath, "i", "", "Input scoring file (shorthand)")
	fs.StringVar(&outputPath, "output", "", "Output scoring file (required)")
	fs.StringVar(&outputPath, "o", "", "Output scoring file (shorthand)")
	fs.StringVar(&chainPath, "chain", "", "UCSC chain file mapping source to destination build (required)")
	fs.StringVar(&fromBuild, "from", "GRCh37", "Source genome build")
	fs.StringVar(&toBuild, "to", "GRCh38", "Destination genome build")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Convert a scoring file between genome builds using a chain file.

Rows whose position has no mapping in the destination build are dropped
and counted; the #genome_build= metadata line is rewritten.

Usage:
  pgscore liftover [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  pgscore liftover --chain hg19ToHg38.over.chain.gz --input PGS000906.txt.gz --output PGS000906.hg38.txt.gz
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if inputPath == "" || outputPath == "" || chainPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --input, --output, and --chain are all required\n\n")
		fs.Usage()
		return ExitUsage
	}

	from, err := genome.ParseBuild(fromBuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsage
	}
	to, err := genome.ParseBuild(toBuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsage
	}
	if from == to {
		fmt.Fprintf(os.Stderr, "Error: source and destination builds are both %s\n", from)
		return ExitUsage
	}

	translator, err := liftover.Open(chainPath, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading chain file: %v\n", err)
		return ExitError
	}

	in, err := openMaybeGzip(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	defer in.Close()

	out, err := createMaybeGzip(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	stats, err := model.RewriteBuild(in, out, translator)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting scoring file: %v\n", err)
		os.Remove(outputPath)
		return ExitError
	}

	fmt.Printf("Conversion complete: %d rows converted, %d unmapped, %d malformed rows skipped\n",
		stats.Converted, stats.Failed, stats.Skipped)
	fmt.Printf("Output written to %s\n", outputPath)
	return ExitSuccess
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read gzipped %s: %w", path, err)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (wc *writeCloser) Close() error {
	var first error
	for _, c := range wc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func createMaybeGzip(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz := gzip.NewWriter(f)
	return &writeCloser{Writer: gz, closers: []io.Closer{gz, f}}, nil
}
