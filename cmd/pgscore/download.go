package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// PGS Catalog endpoints
const pgsFTPBase = "https://ftp.ebi.ac.uk/pub/databases/spot/pgs/scores"

var pgsIDPattern = regexp.MustCompile(`^PGS\d{6}$`)

// scoringFileURL returns the download URL for a PGS Catalog scoring file.
func scoringFileURL(pgsID string) string {
	return fmt.Sprintf("%s/%s/ScoringFiles/%s.txt.gz", pgsFTPBase, pgsID, pgsID)
}

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	var (
		pgsID     string
		outputDir string
	)

	fs.StringVar(&pgsID, "id", "PGS000906", "PGS Catalog score ID")
	fs.StringVar(&outputDir, "output", "", "Output directory (default: ~/.pgscore/)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Download a scoring file from the PGS Catalog.

Usage:
  pgscore download [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Download the default longevity model
  pgscore download

  # Download a specific model
  pgscore download --id PGS002795

After downloading, score against it with:
  pgscore score --model ~/.pgscore/PGS000906.txt.gz genome.vcf
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if !pgsIDPattern.MatchString(pgsID) {
		fmt.Fprintf(os.Stderr, "Error: invalid PGS Catalog ID %q (expected e.g. PGS000906)\n", pgsID)
		return ExitUsage
	}

	if outputDir == "" {
		outputDir = defaultDataDir()
		if outputDir == "" {
			fmt.Fprintf(os.Stderr, "Error: cannot determine home directory\n")
			return ExitError
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create directory %s: %v\n", outputDir, err)
		return ExitError
	}

	url := scoringFileURL(pgsID)
	destPath := filepath.Join(outputDir, fmt.Sprintf("%s.txt.gz", pgsID))

	fmt.Printf("Downloading %s...\n", pgsID)
	if err := downloadFile(url, destPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error downloading %s: %v\n", pgsID, err)
		return ExitError
	}

	fmt.Printf("\nDownload complete!\n")
	fmt.Printf("To compute a score, run:\n")
	fmt.Printf("  pgscore score --model %s genome.vcf\n", destPath)

	return ExitSuccess
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Create destination file
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	// Copy with progress
	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	// Rename temp file to final destination
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
