// Package sorter sorts and aggregates BUS record streams.  Records are
// ordered by the full (CB, UMI, EC, Flag) key; records sharing a key
// are merged by summing their counts.  Small inputs can be sorted
// wholly in memory; Sort handles inputs of unbounded size by sorting
// fixed-size chunks into temporary run shards and then merging the
// runs.  Concat applies the same merge to whole, already-sorted files.
package sorter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/btree"
	"github.com/grailbio/bus/encoding/bus"
	"github.com/grailbio/bus/merge"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// DefaultChunkSize is the default number of records sorted in memory
// at once.  Ten million records is roughly a 300MB chunk on disk.
const DefaultChunkSize = 10 * 1000 * 1000

// SortOptions controls Sort.
type SortOptions struct {
	// ChunkSize is the number of records per in-memory sort batch.
	// If <= 0, DefaultChunkSize is used.
	ChunkSize int

	// TmpDir is the directory under which the per-sort temporary run
	// directory is created.  "" means the system default.
	TmpDir string

	// NoCompressTmpFiles disables snappy compression of run shards.
	NoCompressTmpFiles bool
}

func (o SortOptions) withDefaults() SortOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// Stats summarizes one sort, concat, or in-memory sort.
type Stats struct {
	// InputRecords is the number of records read.
	InputRecords int
	// OutputRecords is the number of aggregated records written.  It
	// is at most InputRecords; the count mass is preserved.
	OutputRecords int
	// Runs is the number of temporary run shards written.
	Runs int
}

// runBuilder aggregates records into an ordered tree keyed by the full
// sort key.  Adding a record whose key is already present sums the
// counts instead of inserting.  Iterating the tree yields the sorted,
// deduplicated run.
type runBuilder struct {
	tree *btree.BTreeG[bus.Record]
}

func newRunBuilder() *runBuilder {
	return &runBuilder{tree: btree.NewG(16, bus.Record.Less)}
}

func (b *runBuilder) add(rec bus.Record) {
	if cur, ok := b.tree.Get(rec); ok {
		cur.Count += rec.Count
		b.tree.ReplaceOrInsert(cur)
		return
	}
	b.tree.ReplaceOrInsert(rec)
}

func (b *runBuilder) addList(recs []bus.Record) {
	for _, rec := range recs {
		b.add(rec)
	}
}

func (b *runBuilder) len() int { return b.tree.Len() }

// records returns the aggregated records in ascending key order.
func (b *runBuilder) records() []bus.Record {
	out := make([]bus.Record, 0, b.tree.Len())
	b.tree.Ascend(func(rec bus.Record) bool {
		out = append(out, rec)
		return true
	})
	return out
}

// mergeGroup re-aggregates one coarse-key merge group.  Records for a
// single (CB, UMI) can be fragmented across sources with differing EC
// or Flag, and the same full key can occur in several sources, so the
// group is rebuilt through a runBuilder.  Aggregation is commutative
// and associative, so source map order does not matter.
func mergeGroup(g merge.Group) []bus.Record {
	if len(g.Records) == 0 {
		panic(fmt.Sprintf("sorter: empty merge group at key %v", g.Key))
	}
	b := newRunBuilder()
	for _, recs := range g.Records {
		b.addList(recs)
	}
	return b.records()
}

// SortList sorts and aggregates an in-memory record slice.  Running it
// on its own output is a no-op.
func SortList(recs []bus.Record) []bus.Record {
	b := newRunBuilder()
	b.addList(recs)
	return b.records()
}

// SortInMemory sorts the BUS file at inPath into outPath, holding the
// whole file in memory.  Use Sort for inputs of unknown size.
func SortInMemory(ctx context.Context, inPath, outPath string) (Stats, error) {
	var stats Stats
	in, err := bus.OpenPath(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer in.Close(ctx) // nolint: errcheck
	recs, err := in.ReadAll()
	if err != nil {
		return stats, err
	}
	stats.InputRecords = len(recs)
	sorted := SortList(recs)
	stats.OutputRecords = len(sorted)
	return stats, writeAll(ctx, outPath, in.Header(), sorted)
}

func writeAll(ctx context.Context, path string, h bus.Header, recs []bus.Record) error {
	out, err := bus.CreatePath(ctx, path, h)
	if err != nil {
		return err
	}
	if err := out.WriteList(recs); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}

// Sort sorts and aggregates the BUS file at inPath into outPath using
// at most O(ChunkSize) memory.  The input is split into chunks, each
// chunk is sorted and aggregated in memory and persisted as a run
// shard in a temporary directory, and the shards are merged by
// ascending (CB, UMI) key with per-key re-aggregation.  The temporary
// directory is removed whether or not the sort succeeds.
func Sort(ctx context.Context, inPath, outPath string, opts SortOptions) (Stats, error) {
	opts = opts.withDefaults()
	var stats Stats

	in, err := bus.OpenPath(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer in.Close(ctx) // nolint: errcheck

	tmpDir, err := os.MkdirTemp(opts.TmpDir, "bus-sort-")
	if err != nil {
		return stats, errors.Wrap(err, "sorter: creating temp dir")
	}
	defer os.RemoveAll(tmpDir) // nolint: errcheck

	// Phase 1: sort chunks into run shards.
	var runPaths []string
	for {
		chunk, err := in.ReadChunk(opts.ChunkSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.InputRecords += len(chunk)
		b := newRunBuilder()
		b.addList(chunk)
		path := filepath.Join(tmpDir, fmt.Sprintf("run-%05d.shard", len(runPaths)))
		vlog.VI(1).Infof("sort %s: run %d, %d records (%d aggregated)", inPath, len(runPaths), len(chunk), b.len())
		if err := writeRunShard(path, b.records(), !opts.NoCompressTmpFiles); err != nil {
			return stats, err
		}
		runPaths = append(runPaths, path)
	}
	stats.Runs = len(runPaths)
	vlog.VI(1).Infof("sort %s: merging %d runs", inPath, len(runPaths))

	// Phase 2: merge the runs into the output.
	readers := make([]*runShardReader, 0, len(runPaths))
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()
	sources := make(map[string]merge.Source, len(runPaths))
	for _, path := range runPaths {
		r, err := openRunShard(path)
		if err != nil {
			return stats, err
		}
		readers = append(readers, r)
		sources[filepath.Base(path)] = bus.NewGroupScanner(r, bus.GroupCBUMI)
	}
	out, err := bus.CreatePath(ctx, outPath, in.Header())
	if err != nil {
		return stats, err
	}
	m := merge.NewMultiScanner(sources)
	for m.Scan() {
		merged := mergeGroup(m.Group())
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
