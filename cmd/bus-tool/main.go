package main

// bus-tool processes BUS (Barcode/UMI/Set) files produced by
// single-cell RNA pipelines.
//
// Usage: bus-tool <command> [args...]

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bus/butterfly"
	"github.com/grailbio/bus/correct"
	"github.com/grailbio/bus/inspect"
	"github.com/grailbio/bus/overlap"
	"github.com/grailbio/bus/sorter"
)

var (
	chunkSizeFlag = flag.Int("chunk-size", sorter.DefaultChunkSize,
		"Number of records sorted in memory per chunk during external sort")
	tmpDirFlag = flag.String("tmp-dir", "",
		"Directory for temporary sort runs. \"\" means the system default")
	inMemoryFlag = flag.Bool("in-memory", false,
		"Sort the whole file in memory instead of in chunks")
	whitelistFlag = flag.String("whitelist", "",
		"Barcode whitelist file (one barcode per line), required by the correct command")
	maxDistFlag = flag.Int("max-dist", correct.DefaultMaxDist,
		"Maximum Hamming distance for barcode correction")
)

func usage() {
	os.Stderr.WriteString(`Usage: bus-tool <command> [args...]

Commands:
  sort <in.bus> <out.bus>
	Sort in.bus by (CB, UMI, EC, Flag), merging duplicate keys by
	summing counts.  Uses disk-backed chunked sorting unless
	-in-memory is given.

  correct -whitelist <wl.txt> <in.bus> <out.bus>
	Correct cell barcodes against the whitelist (at most -max-dist
	substitutions).  Records whose barcode cannot be corrected are
	dropped.

  concat <out.bus> <in.bus...>
	Merge several sorted BUS files into one sorted file, summing the
	counts of records that share a full key.

  overlap <a.bus> <b.bus> <a-out.bus> <b-out.bus>
	Keep only the (CB, UMI) pairs present in both sorted inputs,
	writing each input's own records for those pairs to its output.

  inspect <in.bus>
	Print summary statistics of a sorted BUS file.

  butterfly <in.bus> <out.tsv>
	Write the amplification (CU) histogram of a sorted BUS file.
`)
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()
	ctx := vcontext.Background()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "sort":
		if len(args) != 2 {
			usage()
		}
		var (
			stats sorter.Stats
			err   error
		)
		if *inMemoryFlag {
			stats, err = sorter.SortInMemory(ctx, args[0], args[1])
		} else {
			stats, err = sorter.Sort(ctx, args[0], args[1], sorter.SortOptions{
				ChunkSize: *chunkSizeFlag,
				TmpDir:    *tmpDirFlag,
			})
		}
		if err != nil {
			log.Panicf("sort %v: %v", args[0], err)
		}
		log.Printf("sorted %d records into %d (%d runs)", stats.InputRecords, stats.OutputRecords, stats.Runs)
	case "correct":
		if len(args) != 2 || *whitelistFlag == "" {
			usage()
		}
		stats, err := correct.CorrectFile(ctx, args[0], args[1], *whitelistFlag, correct.Options{MaxDist: *maxDistFlag})
		if err != nil {
			log.Panicf("correct %v: %v", args[0], err)
		}
		log.Printf("corrected %d/%d distinct barcodes; wrote %d records, dropped %d",
			stats.Map.Corrected, stats.Map.Total, stats.WrittenRecords, stats.DroppedRecords)
	case "concat":
		if len(args) < 2 {
			usage()
		}
		stats, err := sorter.Concat(ctx, args[1:], args[0])
		if err != nil {
			log.Panicf("concat to %v: %v", args[0], err)
		}
		log.Printf("concatenated %d records from %d files into %d", stats.InputRecords, len(args)-1, stats.OutputRecords)
	case "overlap":
		if len(args) != 4 {
			usage()
		}
		stats, err := overlap.Extract(ctx, args[0], args[1], args[2], args[3])
		if err != nil {
			log.Panicf("overlap %v %v: %v", args[0], args[1], err)
		}
		log.Printf("%d shared CB-UMIs; wrote %d and %d records", stats.SharedKeys, stats.WrittenA, stats.WrittenB)
	case "inspect":
		if len(args) != 1 {
			usage()
		}
		stats, err := inspect.File(ctx, args[0])
		if err != nil {
			log.Panicf("inspect %v: %v", args[0], err)
		}
		fmt.Println(stats)
	case "butterfly":
		if len(args) != 2 {
			usage()
		}
		h, err := butterfly.MakeHistogram(ctx, args[0])
		if err != nil {
			log.Panicf("butterfly %v: %v", args[0], err)
		}
		if err := h.WriteTSV(ctx, args[1]); err != nil {
			log.Panicf("butterfly write %v: %v", args[1], err)
		}
		log.Printf("%d molecules, %d reads, FSCM %.4f", h.NMolecules(), h.NReads(), h.FSCM())
	default:
		usage()
	}
}
