// Package butterfly quantifies PCR amplification in a single-cell
// experiment.  Every (CB, UMI) pair tags one original molecule; seeing
// the same pair in n reads means the molecule was amplified n-fold.
// The CU histogram records, for each amplification factor, how many
// molecules showed it.  Saturation curves and unseen-species
// estimators are typically built on top of it downstream.
package butterfly

import (
	"context"
	"sort"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bus/encoding/bus"
)

// CUHistogram maps an amplification factor (reads per molecule) to the
// number of molecules observed with it.
type CUHistogram map[uint64]uint64

// NReads returns the total number of reads covered by the histogram.
func (h CUHistogram) NReads() uint64 {
	var n uint64
	for reads, molecules := range h {
		n += reads * molecules
	}
	return n
}

// NMolecules returns the number of distinct molecules (CB/UMI pairs).
func (h CUHistogram) NMolecules() uint64 {
	var n uint64
	for _, molecules := range h {
		n += molecules
	}
	return n
}

// FSCM returns the fraction of single-copy molecules.
func (h CUHistogram) FSCM() float64 {
	m := h.NMolecules()
	if m == 0 {
		return 0
	}
	return float64(h[1]) / float64(m)
}

// MakeHistogram builds the CU histogram of the sorted BUS file at
// path.  Reads for one molecule are summed across its records, so a
// molecule split over several ECs still counts once.
func MakeHistogram(ctx context.Context, path string) (CUHistogram, error) {
	r, err := bus.OpenPath(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close(ctx) // nolint: errcheck
	h := make(CUHistogram)
	s := bus.NewGroupScanner(r, bus.GroupCBUMI)
	for s.Scan() {
		var reads uint64
		for _, rec := range s.Records() {
			reads += uint64(rec.Count)
		}
		h[reads]++
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// WriteTSV writes the histogram as a two-column TSV (amplification,
// frequency) in ascending amplification order.
func (h CUHistogram) WriteTSV(ctx context.Context, path string) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil {
			err = cerr
		}
	}()

	factors := make([]uint64, 0, len(h))
	for reads := range h {
		factors = append(factors, reads)
	}
	sort.Slice(factors, func(i, j int) bool { return factors[i] < factors[j] })

	w := tsv.NewWriter(f.Writer(ctx))
	w.WriteString("amplification")
	w.WriteString("frequency")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, reads := range factors {
		w.WriteInt64(int64(reads))
		w.WriteInt64(int64(h[reads]))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
