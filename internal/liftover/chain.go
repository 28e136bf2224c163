// Package liftover translates genomic coordinates between reference
// genome builds using UCSC chain files.
package liftover

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

// Segment is one contiguous alignment block between two builds.
// Source positions are 0-based half-open. For forward-strand segments
// DestStart is the destination position of SrcStart; for reverse-strand
// segments DestStart is the plus-strand destination position of
// SrcStart, and successive source positions map to decreasing
// destination positions.
type Segment struct {
	SrcChrom  string
	SrcStart  int64
	SrcEnd    int64
	DestChrom string
	DestStart int64
	Reverse   bool
}

// ParseChainFile reads a UCSC chain file (plain or gzipped) from disk.
func ParseChainFile(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("read gzipped chain file: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return ParseChains(r)
}

// ParseChains parses chain-format alignment data into segments.
//
// Chain format reference: each chain starts with a header line
//
//	chain score tName tSize tStrand tStart tEnd qName qSize qStrand qStart qEnd id
//
// followed by alignment blocks "size [dt dq]", with a bare size on the
// final line. tStrand is always "+"; a "-" qStrand means destination
// coordinates count from the end of the destination sequence.
func ParseChains(r io.Reader) ([]Segment, error) {
	var segments []Segment

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		inChain     bool
		srcChrom    string
		destChrom   string
		destSize    int64
		reverse     bool
		srcFrom     int64
		destFrom    int64
		lineNumber  int
		chainsFound int
	)

	for scan.Scan() {
		lineNumber++
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			inChain = false
			continue
		}

		fields := strings.Fields(line)
		if fields[0] == "chain" {
			if len(fields) < 12 {
				return nil, fmt.Errorf("chain header at line %d: expected 12 fields, found %d", lineNumber, len(fields))
			}
			hdr, err := parseChainHeader(fields)
			if err != nil {
				return nil, fmt.Errorf("chain header at line %d: %w", lineNumber, err)
			}
			srcChrom = genome.CanonicalChrom(hdr.tName)
			destChrom = genome.CanonicalChrom(hdr.qName)
			destSize = hdr.qSize
			reverse = hdr.qStrand == "-"
			srcFrom = hdr.tStart
			destFrom = hdr.qStart
			inChain = true
			chainsFound++
			continue
		}

		if !inChain {
			return nil, fmt.Errorf("line %d: alignment block outside a chain", lineNumber)
		}

		// Alignment block: "size" or "size dt dq".
		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid block size %q", lineNumber, fields[0])
		}

		seg := Segment{
			SrcChrom:  srcChrom,
			SrcStart:  srcFrom,
			SrcEnd:    srcFrom + size,
			DestChrom: destChrom,
			Reverse:   reverse,
		}
		if reverse {
			// destFrom counts on the reversed strand; convert the block
			// start to a plus-strand position.
			seg.DestStart = destSize - destFrom - 1
		} else {
			seg.DestStart = destFrom
		}
		segments = append(segments, seg)

		if len(fields) >= 3 {
			dt, err1 := strconv.ParseInt(fields[1], 10, 64)
			dq, err2 := strconv.ParseInt(fields[2], 10, 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: invalid gap lengths", lineNumber)
			}
			srcFrom += size + dt
			destFrom += size + dq
		} else {
			// Final block of the chain.
			inChain = false
		}
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read chain data: %w", err)
	}
	if chainsFound == 0 {
		return nil, fmt.Errorf("no chain records found")
	}

	return segments, nil
}

type chainHeader struct {
	tName   string
	tStart  int64
	tEnd    int64
	qName   string
	qSize   int64
	qStrand string
	qStart  int64
	qEnd    int64
}

func parseChainHeader(fields []string) (chainHeader, error) {
	var h chainHeader
	h.tName = fields[2]
	h.qName = fields[7]
	h.qStrand = fields[9]

	var err error
	if h.tStart, err = strconv.ParseInt(fields[5], 10, 64); err != nil {
		return h, fmt.Errorf("invalid tStart %q", fields[5])
	}
	if h.tEnd, err = strconv.ParseInt(fields[6], 10, 64); err != nil {
		return h, fmt.Errorf("invalid tEnd %q", fields[6])
	}
	if h.qSize, err = strconv.ParseInt(fields[8], 10, 64); err != nil {
		return h, fmt.Errorf("invalid qSize %q", fields[8])
	}
	if h.qStart, err = strconv.ParseInt(fields[10], 10, 64); err != nil {
		return h, fmt.Errorf("invalid qStart %q", fields[10])
	}
	if h.qEnd, err = strconv.ParseInt(fields[11], 10, 64); err != nil {
		return h, fmt.Errorf("invalid qEnd %q", fields[11])
	}
	if fields[4] != "+" {
		return h, fmt.Errorf("unsupported tStrand %q", fields[4])
	}
	return h, nil
}
