// Package inspect summarizes a sorted BUS file: record and read
// totals, plus the number of distinct cell barcodes and CB/UMI pairs.
// Distinct counts are computed from key transitions and are therefore
// only meaningful on sorted input.
package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/bus/encoding/bus"
)

// Stats describes one BUS file.
type Stats struct {
	CBLen   uint32
	UMILen  uint32
	Records int
	Reads   uint64
	// Barcodes is the number of distinct cell barcodes.
	Barcodes int
	// CBUMIs is the number of distinct (CB, UMI) pairs, i.e.
	// molecules.
	CBUMIs int
}

func (s Stats) String() string {
	return fmt.Sprintf("CB: %d BP, UMI: %d BP; %d records, %d reads, %d cell-barcodes, %d CB-UMIs",
		s.CBLen, s.UMILen, s.Records, s.Reads, s.Barcodes, s.CBUMIs)
}

// File computes the Stats of the sorted BUS file at path in one pass.
func File(ctx context.Context, path string) (Stats, error) {
	r, err := bus.OpenPath(ctx, path)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close(ctx) // nolint: errcheck
	stats := Stats{CBLen: r.Header().CBLen, UMILen: r.Header().UMILen}
	var (
		prev  bus.Record
		first = true
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Records++
		stats.Reads += uint64(rec.Count)
		if first || rec.CB != prev.CB {
			stats.Barcodes++
		}
		if first || rec.CB != prev.CB || rec.UMI != prev.UMI {
			stats.CBUMIs++
		}
		prev, first = rec, false
	}
	return stats, nil
}
