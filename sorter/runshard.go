package sorter

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/bus/encoding/bus"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// Run shards are the temporary files of the external sort.  A shard
// holds one sorted, aggregated run of records as a recordio file: each
// recordio block is a packed sequence of 32-byte records, optionally
// snappy-compressed as a whole.  The recordio trailer is a fixed
// 16-byte footer:
//
//	magic uint32
//	flags uint32  // bit 0: blocks are snappy-compressed
//	numRecords uint64
//
// Shards live in a per-sort temporary directory and are deleted with
// it once the merge phase completes.

const (
	runShardMagic      = 0x52534831 // "RSH1"
	runShardFlagSnappy = 1 << 0

	// Records per recordio block, pre-compression (1MiB of records).
	runShardBlockRecords = 32768

	runShardTrailerBytes = 16
)

// writeRunShard writes recs, which must be sorted by full key, to a new
// run shard at path.
func writeRunShard(path string, recs []bus.Record, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "sorter: creating run shard")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrap(cerr, "sorter: closing run shard")
		}
	}()

	w := recordio.NewWriter(f, recordio.WriterOpts{
		Marshal: func(scratch []byte, v interface{}) ([]byte, error) {
			return v.([]byte), nil
		},
	})
	w.AddHeader(recordio.KeyTrailer, true)

	for off := 0; off < len(recs); off += runShardBlockRecords {
		end := off + runShardBlockRecords
		if end > len(recs) {
			end = len(recs)
		}
		block := make([]byte, (end-off)*bus.RecordBytes)
		for i, rec := range recs[off:end] {
			if i+off > 0 && rec.Less(recs[off+i-1]) {
				vlog.Fatalf("run shard %s: key %v decreased below %v", path, rec, recs[off+i-1])
			}
			bus.EncodeRecord(block[i*bus.RecordBytes:], rec)
		}
		if compress {
			block = snappy.Encode(nil, block)
		}
		w.Append(block)
		w.Flush()
	}
	w.Wait()

	var trailer [runShardTrailerBytes]byte
	binary.LittleEndian.PutUint32(trailer[0:4], runShardMagic)
	var flags uint32
	if compress {
		flags |= runShardFlagSnappy
	}
	binary.LittleEndian.PutUint32(trailer[4:8], flags)
	binary.LittleEndian.PutUint64(trailer[8:16], uint64(len(recs)))
	w.SetTrailer(trailer[:])
	return errors.Wrapf(w.Finish(), "sorter: finishing run shard %s", path)
}

// runShardReader reads the records of one run shard in order.  It
// implements bus.RecordSource.
type runShardReader struct {
	path    string
	f       *os.File
	rio     recordio.Scanner
	snappy  bool
	total   uint64 // record count from the trailer
	read    uint64
	buf     []byte // decoded current block
	pos     int
	last    bus.Record
	hasLast bool
}

func openRunShard(path string) (*runShardReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "sorter: opening run shard")
	}
	r := &runShardReader{path: path, f: f}
	r.rio = recordio.NewScanner(f, recordio.ScannerOpts{
		Unmarshal: func(data []byte) (interface{}, error) {
			// The scanner reuses its buffer across blocks.
			return append([]byte(nil), data...), nil
		},
	})
	trailer := r.rio.Trailer()
	if len(trailer) == 0 {
		_ = f.Close()
		return nil, errors.Errorf("sorter: run shard %s has no trailer: %v", path, r.rio.Err())
	}
	if len(trailer) != runShardTrailerBytes ||
		binary.LittleEndian.Uint32(trailer[0:4]) != runShardMagic {
		_ = f.Close()
		return nil, errors.Errorf("sorter: run shard %s has a corrupt trailer", path)
	}
	flags := binary.LittleEndian.Uint32(trailer[4:8])
	r.snappy = flags&runShardFlagSnappy != 0
	r.total = binary.LittleEndian.Uint64(trailer[8:16])
	return r, nil
}

// Read returns the next record, or io.EOF after the shard's last
// record.
func (r *runShardReader) Read() (bus.Record, error) {
	for r.pos >= len(r.buf) {
		if !r.rio.Scan() {
			if err := r.rio.Err(); err != nil {
				return bus.Record{}, errors.Wrapf(err, "sorter: reading run shard %s", r.path)
			}
			if r.read != r.total {
				return bus.Record{}, errors.Errorf("sorter: run shard %s holds %d records, trailer says %d", r.path, r.read, r.total)
			}
			return bus.Record{}, io.EOF
		}
		data := r.rio.Get().([]byte)
		if r.snappy {
			var err error
			if data, err = snappy.Decode(nil, data); err != nil {
				return bus.Record{}, errors.Wrapf(err, "sorter: decompressing run shard %s", r.path)
			}
		}
		if len(data)%bus.RecordBytes != 0 {
			return bus.Record{}, errors.Errorf("sorter: run shard %s block of %d bytes is not record aligned", r.path, len(data))
		}
		r.buf, r.pos = data, 0
	}
	rec := bus.DecodeRecord(r.buf[r.pos:])
	r.pos += bus.RecordBytes
	r.read++
	if r.hasLast && rec.Less(r.last) {
		vlog.Fatalf("run shard %s: key %v decreased below %v", r.path, rec, r.last)
	}
	r.last, r.hasLast = rec, true
	return rec, nil
}

func (r *runShardReader) Close() error {
	return r.f.Close()
}
