// Package correct maps observed cell barcodes onto a whitelist of
// valid barcodes, tolerating a bounded number of sequencing errors.
// The whitelist is indexed once in a Hamming-distance BK-tree; a
// dataset is then corrected in two passes: the distinct observed
// barcodes are resolved through the index (barcodes repeat heavily
// across records, so this is orders of magnitude fewer queries than
// one per record), and the records are rewritten through the resulting
// table, dropping those that could not be corrected.
package correct

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bus/encoding/bus"
	"github.com/pkg/errors"
)

// DefaultMaxDist is the default correction bound: a barcode is
// correctable only to a whitelist entry at most this many substitutions
// away.
const DefaultMaxDist = 1

// Options controls a Corrector.
type Options struct {
	// MaxDist is the maximum Hamming distance considered correctable.
	// If <= 0, DefaultMaxDist is used.
	MaxDist int
}

// Kind classifies the outcome of correcting one barcode.
type Kind int

const (
	// NoHit means no whitelist entry lies within the distance bound.
	NoHit Kind = iota
	// SingleHit means exactly one whitelist entry matched, or an
	// exact whitelist member coexisted with near misses.
	SingleHit
	// Ambiguous means the barcode sits within the bound of two or
	// more whitelist entries, none an exact match.
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case NoHit:
		return "no-hit"
	case SingleHit:
		return "single-hit"
	case Ambiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Correction is the outcome of correcting one barcode.  Barcode is set
// for SingleHit; Candidates holds all matched whitelist entries for
// Ambiguous.
type Correction struct {
	Kind       Kind
	Barcode    string
	Candidates []string
}

func hamming(a, b string) int {
	d, err := matchr.Hamming(a, b)
	if err != nil {
		// The corrector only compares equal-length strings.
		panic(fmt.Sprintf("correct: hamming %q vs %q: %v", a, b, err))
	}
	return d
}

// Corrector resolves observed barcodes against a whitelist.  Build it
// once per whitelist and reuse it for every query; after construction
// it is read-only.
type Corrector struct {
	whitelist  map[string]bool
	tree       *bkTree
	barcodeLen int
	maxDist    int
}

// NewCorrector indexes the whitelist.  All entries must have the same
// length; duplicates are collapsed, so a query can never see two
// distance-0 hits.
func NewCorrector(whitelist []string, opts Options) (*Corrector, error) {
	if opts.MaxDist <= 0 {
		opts.MaxDist = DefaultMaxDist
	}
	if len(whitelist) == 0 {
		return nil, errors.New("correct: empty whitelist")
	}
	c := &Corrector{
		whitelist:  make(map[string]bool, len(whitelist)),
		tree:       newBKTree(hamming),
		barcodeLen: len(whitelist[0]),
		maxDist:    opts.MaxDist,
	}
	log.Debug.Printf("correct: indexing %d whitelist barcodes", len(whitelist))
	for _, w := range whitelist {
		if len(w) != c.barcodeLen {
			return nil, errors.Errorf("correct: whitelist barcode %q has length %d, others have %d", w, len(w), c.barcodeLen)
		}
		if c.whitelist[w] {
			continue
		}
		c.whitelist[w] = true
		c.tree.insert(w)
	}
	log.Debug.Printf("correct: indexed %d distinct whitelist barcodes", c.tree.size)
	return c, nil
}

// BarcodeLen returns the whitelist barcode length.
func (c *Corrector) BarcodeLen() int { return c.barcodeLen }

// Correct resolves one barcode.  An exact whitelist match always wins:
// the index can return several neighbors even when one of them is the
// query itself.
func (c *Corrector) Correct(barcode string) Correction {
	if len(barcode) != c.barcodeLen {
		panic(fmt.Sprintf("correct: barcode %q has length %d, whitelist has %d", barcode, len(barcode), c.barcodeLen))
	}
	matches := c.tree.find(barcode, c.maxDist)
	switch len(matches) {
	case 0:
		return Correction{Kind: NoHit}
	case 1:
		return Correction{Kind: SingleHit, Barcode: matches[0].word}
	}
	var exact []string
	for _, m := range matches {
		if m.dist == 0 {
			exact = append(exact, m.word)
		}
	}
	if len(exact) == 1 {
		return Correction{Kind: SingleHit, Barcode: exact[0]}
	}
	// With a deduplicated whitelist two exact hits cannot happen; the
	// remaining case is a query equidistant between entries.
	candidates := make([]string, len(matches))
	for i, m := range matches {
		candidates[i] = m.word
	}
	return Correction{Kind: Ambiguous, Candidates: candidates}
}

// CorrectionMap maps the integer encoding of an observed barcode to the
// integer encoding of its corrected whitelist barcode.  Uncorrectable
// barcodes are absent.
type CorrectionMap map[uint64]uint64

// MapStats summarizes a BuildCorrectionMap run.
type MapStats struct {
	// Total is the number of distinct observed barcodes.
	Total int
	// Corrected is the number mapped to a whitelist barcode (exact
	// members included).
	Corrected int
	// NoHit and Ambiguous count the uncorrectable outcomes.
	NoHit     int
	Ambiguous int
}

// BuildCorrectionMap resolves every distinct observed barcode.  Exact
// whitelist members map to themselves without touching the index; that
// is the dominant case in real data and must stay cheap.
func (c *Corrector) BuildCorrectionMap(observed []string) (CorrectionMap, MapStats, error) {
	m := make(CorrectionMap, len(observed))
	var stats MapStats
	for _, cb := range observed {
		stats.Total++
		if c.whitelist[cb] {
			v, err := bus.SeqToInt(cb)
			if err != nil {
				return nil, stats, err
			}
			m[v] = v
			stats.Corrected++
			continue
		}
		switch res := c.Correct(cb); res.Kind {
		case SingleHit:
			from, err := bus.SeqToInt(cb)
			if err != nil {
				return nil, stats, err
			}
			to, err := bus.SeqToInt(res.Barcode)
			if err != nil {
				return nil, stats, err
			}
			m[from] = to
			stats.Corrected++
		case NoHit:
			stats.NoHit++
		case Ambiguous:
			stats.Ambiguous++
		}
	}
	return m, stats, nil
}

// LoadWhitelist reads a newline-delimited barcode list.  Entries are
// uppercased, validated to be ACGT of uniform length, and deduplicated.
func LoadWhitelist(ctx context.Context, path string) ([]string, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer f.Close(ctx) // nolint: errcheck
	var (
		out  []string
		seen = make(map[string]bool)
	)
	scanner := bufio.NewScanner(f.Reader(ctx))
	for scanner.Scan() {
		cb := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if cb == "" {
			continue
		}
		if _, err := bus.SeqToInt(cb); err != nil {
			return nil, errors.Wrapf(err, "correct: whitelist %s", path)
		}
		if len(out) > 0 && len(cb) != len(out[0]) {
			return nil, errors.Errorf("correct: whitelist %s: barcode %q has length %d, others have %d", path, cb, len(cb), len(out[0]))
		}
		if seen[cb] {
			continue
		}
		seen[cb] = true
		out = append(out, cb)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "correct: reading whitelist %s", path)
	}
	if len(out) == 0 {
		return nil, errors.Errorf("correct: whitelist %s is empty", path)
	}
	return out, nil
}
