package correct

import (
	"context"
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bus/encoding/bus"
	"github.com/pkg/errors"
)

// FileStats summarizes a CorrectFile run.  Uncorrectable barcodes are
// never per-record errors; they surface only here.
type FileStats struct {
	// Map describes the distinct-barcode resolution pass.
	Map MapStats
	// TotalRecords is the number of records read.
	TotalRecords int
	// WrittenRecords is the number of records whose barcode was
	// corrected (or already valid) and that were written out.
	WrittenRecords int
	// DroppedRecords is the number of records excluded because their
	// barcode was uncorrectable.
	DroppedRecords int
}

// CorrectFile corrects every record of the BUS file at inPath against
// the whitelist at whitelistPath and writes the surviving records to
// outPath.  The input need not be sorted and the output preserves its
// record order, so no re-sorting is required afterwards.
func CorrectFile(ctx context.Context, inPath, outPath, whitelistPath string, opts Options) (FileStats, error) {
	var stats FileStats
	whitelist, err := LoadWhitelist(ctx, whitelistPath)
	if err != nil {
		return stats, err
	}
	c, err := NewCorrector(whitelist, opts)
	if err != nil {
		return stats, err
	}

	// Pass 1: the distinct observed barcodes.
	in, err := bus.OpenPath(ctx, inPath)
	if err != nil {
		return stats, err
	}
	cbLen := int(in.Header().CBLen)
	if cbLen != c.BarcodeLen() {
		_ = in.Close(ctx)
		return stats, errors.Errorf("correct: %s has %dbp barcodes, whitelist %s has %dbp", inPath, cbLen, whitelistPath, c.BarcodeLen())
	}
	distinct := make(map[uint64]bool)
	for {
		rec, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = in.Close(ctx)
			return stats, err
		}
		distinct[rec.CB] = true
	}
	if err := in.Close(ctx); err != nil {
		return stats, err
	}
	observed := make([]string, 0, len(distinct))
	for cb := range distinct {
		observed = append(observed, bus.IntToSeq(cb, cbLen))
	}
	log.Debug.Printf("correct %s: resolving %d distinct barcodes", inPath, len(observed))
	cmap, mstats, err := c.BuildCorrectionMap(observed)
	if err != nil {
		return stats, err
	}
	stats.Map = mstats
	log.Debug.Printf("correct %s: corrected %d/%d distinct barcodes", inPath, mstats.Corrected, mstats.Total)

	// Pass 2: rewrite the records through the map.
	in, err = bus.OpenPath(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer in.Close(ctx) // nolint: errcheck
	out, err := bus.CreatePath(ctx, outPath, in.Header())
	if err != nil {
		return stats, err
	}
	for {
		rec, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = out.Close(ctx)
			return stats, err
		}
		stats.TotalRecords++
		corrected, ok := cmap[rec.CB]
		if !ok {
			stats.DroppedRecords++
			continue
		}
		rec.CB = corrected
		if err := out.Write(rec); err != nil {
			_ = out.Close(ctx)
			return stats, err
		}
		stats.WrittenRecords++
	}
	return stats, out.Close(ctx)
}
