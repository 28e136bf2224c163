// Package main provides the pgscore command-line tool.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Parse()

	if showVersion {
		fmt.Printf("pgscore version %s (%s) built %s\n", version, commit, date)
		return ExitSuccess
	}

	initConfig()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return ExitUsage
	}

	switch args[0] {
	case "score":
		return runScore(args[1:])
	case "liftover":
		return runLiftover(args[1:])
	case "download":
		return runDownload(args[1:])
	case "runs":
		return runRuns(args[1:])
	case "config":
		cmd := newConfigCmd()
		cmd.SetArgs(args[1:])
		if err := cmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
		return ExitSuccess
	case "help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printUsage()
		return ExitUsage
	}
}

// initConfig wires the optional ~/.pgscore.yaml config file into viper.
// Missing config files are fine; flags always override.
func initConfig() {
	viper.SetConfigName(".pgscore")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetDefault("callset.build", "GRCh38")
	viper.SetDefault("model.build", "GRCh37")
	viper.SetDefault("score.workers", 1)
	viper.SetDefault("score.top", 10)
	_ = viper.ReadInConfig()
}

// newLogger builds the zap logger used by the engine packages.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// defaultDataDir returns the per-user data directory for downloaded
// scoring files and the results database.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgscore")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pgscore - Polygenic Score Calculator

Usage:
  pgscore [options] <command> [arguments]

Commands:
  score       Compute a polygenic score from a scoring file and a VCF call set
  liftover    Convert a scoring file between genome builds using a chain file
  download    Download a scoring file from the PGS Catalog
  runs        List previously persisted score runs
  config      Manage pgscore configuration
  help        Show this help message

Global Options:
  --version   Show version information

Examples:
  # Download a scoring model (one-time setup)
  pgscore download --id PGS000906

  # Compute a score against a personal VCF
  pgscore score --model PGS000906.txt.gz genome.vcf.gz

  # Convert a GRCh37 scoring file to GRCh38
  pgscore liftover --chain hg19ToHg38.over.chain.gz --input PGS000906.txt.gz --output PGS000906.hg38.txt

For more information on a command, use:
  pgscore <command> --help
`)
}
