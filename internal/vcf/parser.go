package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/openpgx/pgscore/internal/genome"
)

// RecordReader is the interface for readers that produce call-set records.
type RecordReader interface {
	// Next reads the next record. Returns nil, nil when there are no
	// more records. A *ParseError return means only the current row is
	// bad; any other error is fatal to the stream.
	Next() (*Record, error)

	// Close closes the reader and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// Parser reads records from a VCF stream.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	_, err = file.Read(buf)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	// Seek back to beginning
	_, err = file.Seek(0, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	// Parse header
	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(r),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads and stores VCF header lines. A stream with no
// #CHROM line at all is not a VCF-shaped stream and is a fatal error.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			// Extract sample names from columns after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}

		// Non-header line encountered without #CHROM
		return fmt.Errorf("vcf header error at line %d: expected #CHROM header line", p.lineNumber)
	}

	return fmt.Errorf("vcf header error: no #CHROM header line found")
}

// Next reads the next record from the VCF file.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*Record, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return nil, fmt.Errorf("read record line: %w", err)
		}
		if line == "" {
			return nil, nil
		}
	}
	p.lineNumber++

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return p.Next() // Skip empty lines
	}

	return p.parseLine(line)
}

// parseLine parses a single VCF data line into a Record.
func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 10 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 10 columns (incl. FORMAT and sample), found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	ref := genome.NormalizeAllele(fields[3])
	if !genome.ValidAllele(ref) {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid REF allele: %s", fields[3]),
		}
	}

	// Multi-allelic ALT stays one record: genotype indices refer to
	// this list, so it must never be split. A monomorphic row (ALT of
	// ".") carries no alternate allele and is rejected here, so such
	// positions read downstream as absent, not homozygous reference.
	rawAlts := strings.Split(fields[4], ",")
	alts := make([]string, 0, len(rawAlts))
	for _, raw := range rawAlts {
		alt := genome.NormalizeAllele(raw)
		if !genome.ValidAllele(alt) {
			return nil, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("invalid ALT allele: %s", raw),
			}
		}
		alts = append(alts, alt)
	}

	gt, err := p.parseGenotype(fields[8], fields[9], len(alts))
	if err != nil {
		return nil, err
	}

	return &Record{
		Chrom:    fields[0],
		Pos:      pos,
		ID:       fields[2],
		Ref:      ref,
		Alt:      alts,
		Genotype: gt,
	}, nil
}

// parseGenotype extracts the GT value from the FORMAT and sample
// columns. "/" and "|" separators are treated identically; phasing is
// irrelevant to dosage. Haploid calls (e.g. male X) are doubled so a
// single observed allele still yields a diploid index pair.
func (p *Parser) parseGenotype(format, sample string, altCount int) (Genotype, error) {
	gtIndex := -1
	for i, key := range strings.Split(format, ":") {
		if key == "GT" {
			gtIndex = i
			break
		}
	}
	if gtIndex < 0 {
		return Genotype{}, &ParseError{
			Line:    p.lineNumber,
			Message: "FORMAT column has no GT field",
		}
	}

	sampleFields := strings.Split(sample, ":")
	if gtIndex >= len(sampleFields) {
		return Genotype{}, &ParseError{
			Line:    p.lineNumber,
			Message: "sample column has no GT value",
		}
	}

	raw := sampleFields[gtIndex]
	calls := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '|'
	})

	switch len(calls) {
	case 1:
		calls = []string{calls[0], calls[0]}
	case 2:
		// diploid
	default:
		return Genotype{}, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("unsupported genotype ploidy: %s", raw),
		}
	}

	var gt Genotype
	for i, call := range calls {
		if call == "." {
			return Genotype{Missing: true}, nil
		}
		idx, err := strconv.Atoi(call)
		if err != nil || idx < 0 || idx > altCount {
			return Genotype{}, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("invalid genotype call: %s", raw),
			}
		}
		if i == 0 {
			gt.A1 = idx
		} else {
			gt.A2 = idx
		}
	}
	return gt, nil
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error for a single malformed row. Callers
// building an index skip and count these instead of aborting.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
