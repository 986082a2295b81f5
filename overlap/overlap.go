// Package overlap extracts the CB/UMI-level intersection of two sorted
// BUS files.  A (CB, UMI) key survives only if both inputs contain it;
// each output then receives its own input's records for that key, so
// the two sides keep their original EC/Count content.
package overlap

import (
	"context"

	"github.com/grailbio/bus/encoding/bus"
	"github.com/grailbio/bus/merge"
	"github.com/pkg/errors"
)

const (
	sourceA = "a"
	sourceB = "b"
)

// Stats summarizes one extraction.
type Stats struct {
	// SharedKeys is the number of (CB, UMI) keys present in both
	// inputs.
	SharedKeys int
	// WrittenA and WrittenB are the record counts written to each
	// output.
	WrittenA int
	WrittenB int
}

// Extract writes the records of inPathA whose (CB, UMI) also occurs in
// inPathB to outPathA, and vice versa to outPathB.  Both inputs must
// be sorted and share barcode/UMI lengths.
func Extract(ctx context.Context, inPathA, inPathB, outPathA, outPathB string) (Stats, error) {
	var stats Stats
	ra, err := bus.OpenPath(ctx, inPathA)
	if err != nil {
		return stats, err
	}
	defer ra.Close(ctx) // nolint: errcheck
	rb, err := bus.OpenPath(ctx, inPathB)
	if err != nil {
		return stats, err
	}
	defer rb.Close(ctx) // nolint: errcheck
	if pa, pb := ra.Header().Params(), rb.Header().Params(); pa != pb {
		return stats, errors.Errorf("overlap: mismatched header parameters: %s %+v vs %s %+v", inPathA, pa, inPathB, pb)
	}

	wa, err := bus.CreatePath(ctx, outPathA, ra.Header())
	if err != nil {
		return stats, err
	}
	wb, err := bus.CreatePath(ctx, outPathB, rb.Header())
	if err != nil {
		_ = wa.Close(ctx)
		return stats, err
	}

	m := merge.NewMultiScanner(map[string]merge.Source{
		sourceA: bus.NewGroupScanner(ra, bus.GroupCBUMI),
		sourceB: bus.NewGroupScanner(rb, bus.GroupCBUMI),
	})
	for m.Scan() {
		g := m.Group()
		if len(g.Records) < 2 {
			continue // key present on one side only
		}
		stats.SharedKeys++
		if err := wa.WriteList(g.Records[sourceA]); err != nil {
			return stats, closeBoth(ctx, wa, wb, err)
		}
		if err := wb.WriteList(g.Records[sourceB]); err != nil {
			return stats, closeBoth(ctx, wa, wb, err)
		}
		stats.WrittenA += len(g.Records[sourceA])
		stats.WrittenB += len(g.Records[sourceB])
	}
	if err := m.Err(); err != nil {
		return stats, closeBoth(ctx, wa, wb, err)
	}
	return stats, closeBoth(ctx, wa, wb, nil)
}

func closeBoth(ctx context.Context, wa, wb *bus.PathWriter, err error) error {
	if cerr := wa.Close(ctx); err == nil {
		err = cerr
	}
	if cerr := wb.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
