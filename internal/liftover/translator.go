package liftover

import (
	"errors"
	"fmt"
	"sort"

	"github.com/openpgx/pgscore/internal/genome"
)

// ErrNoMapping is returned when a position falls in a region that is
// deleted or unmapped in the destination build.
var ErrNoMapping = errors.New("no mapping for position")

// Translator converts coordinates from one build to another using an
// interval table built once and never modified afterwards.
type Translator struct {
	from     genome.Build
	to       genome.Build
	segments map[string][]Segment // per source chromosome, sorted by SrcStart
}

// NewTranslator builds a translator over the given segments. Segments
// are sorted per chromosome; sources are expected to be non-overlapping
// (chain files satisfy this within a net).
func NewTranslator(from, to genome.Build, segments []Segment) *Translator {
	byChrom := make(map[string][]Segment)
	for _, s := range segments {
		chrom := genome.CanonicalChrom(s.SrcChrom)
		byChrom[chrom] = append(byChrom[chrom], s)
	}
	for chrom := range byChrom {
		segs := byChrom[chrom]
		sort.Slice(segs, func(i, j int) bool {
			return segs[i].SrcStart < segs[j].SrcStart
		})
	}
	return &Translator{from: from, to: to, segments: byChrom}
}

// Open parses a chain file and builds a translator from it.
func Open(path string, from, to genome.Build) (*Translator, error) {
	segments, err := ParseChainFile(path)
	if err != nil {
		return nil, err
	}
	return NewTranslator(from, to, segments), nil
}

// From returns the source build of the mapping table.
func (t *Translator) From() genome.Build { return t.from }

// To returns the destination build of the mapping table.
func (t *Translator) To() genome.Build { return t.to }

// Translate converts a coordinate to the target build. If the
// coordinate is already on the target build it is returned unchanged
// with reverse=false (identity, not an error). reverse is true when the
// containing interval maps to the opposite strand, in which case the
// caller must complement alleles before comparing them.
func (t *Translator) Translate(c genome.Coordinate, target genome.Build) (mapped genome.Coordinate, reverse bool, err error) {
	if c.Build == target {
		return c, false, nil
	}
	if c.Build != t.from || target != t.to {
		return genome.Coordinate{}, false, fmt.Errorf("translator maps %s to %s, cannot translate %s to %s", t.from, t.to, c.Build, target)
	}

	segs := t.segments[c.Chrom]
	if len(segs) == 0 {
		return genome.Coordinate{}, false, fmt.Errorf("%w: %s", ErrNoMapping, c)
	}

	// Chain intervals are 0-based half-open; coordinates are 1-based.
	p := c.Pos - 1

	// Binary search for the last segment starting at or before p.
	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].SrcStart > p
	})
	if i == 0 {
		return genome.Coordinate{}, false, fmt.Errorf("%w: %s", ErrNoMapping, c)
	}
	seg := segs[i-1]
	if p >= seg.SrcEnd {
		return genome.Coordinate{}, false, fmt.Errorf("%w: %s", ErrNoMapping, c)
	}

	offset := p - seg.SrcStart
	var destPos int64
	if seg.Reverse {
		destPos = seg.DestStart - offset
	} else {
		destPos = seg.DestStart + offset
	}

	return genome.NewCoordinate(target, seg.DestChrom, destPos+1), seg.Reverse, nil
}
