package sorter

import (
	"context"
	"fmt"

	"github.com/grailbio/bus/encoding/bus"
	"github.com/grailbio/bus/merge"
	"github.com/pkg/errors"
)

// Concat merges several sorted BUS files into one sorted output.  A
// full key present in more than one input (or more than once in one
// input) has its counts summed.  All inputs must share barcode and UMI
// lengths; the check happens before any record is processed.
func Concat(ctx context.Context, inPaths []string, outPath string) (Stats, error) {
	var stats Stats
	if len(inPaths) == 0 {
		return stats, errors.New("sorter: no input files to concatenate")
	}

	readers := make([]*bus.PathReader, 0, len(inPaths))
	defer func() {
		for _, r := range readers {
			_ = r.Close(ctx)
		}
	}()
	sources := make(map[string]merge.Source, len(inPaths))
	var params bus.Params
	for i, path := range inPaths {
		r, err := bus.OpenPath(ctx, path)
		if err != nil {
			return stats, err
		}
		readers = append(readers, r)
		if i == 0 {
			params = r.Header().Params()
		} else if p := r.Header().Params(); p != params {
			return stats, errors.Errorf("sorter: mismatched header parameters in %s: %+v vs %+v", path, p, params)
		}
		// An index prefix keeps duplicate input paths distinct.
		sources[fmt.Sprintf("%03d:%s", i, path)] = bus.NewGroupScanner(r, bus.GroupCBUMI)
	}

	out, err := bus.CreatePath(ctx, outPath, readers[0].Header())
	if err != nil {
		return stats, err
	}
	m := merge.NewMultiScanner(sources)
	for m.Scan() {
		g := m.Group()
		for _, recs := range g.Records {
			stats.InputRecords += len(recs)
		}
		merged := mergeGroup(g)
		if err := out.WriteList(merged); err != nil {
			_ = out.Close(ctx)
			return stats, err
		}
		stats.OutputRecords += len(merged)
	}
	if err := m.Err(); err != nil {
		_ = out.Close(ctx)
		return stats, err
	}
	return stats, out.Close(ctx)
}
