package bus

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// RecordSource is a sequential stream of records.  Read returns io.EOF
// after the last record.  *Reader and the sorter's run-shard reader
// both implement it.
type RecordSource interface {
	Read() (Record, error)
}

// Reader reads BUS records sequentially from an underlying stream.
type Reader struct {
	r      *bufio.Reader
	header Header
	buf    [RecordBytes]byte
}

// NewReader parses the BUS header from r and returns a Reader for the
// records that follow.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, header: h}, nil
}

// Header returns the file header.
func (r *Reader) Header() Header { return r.header }

// Read returns the next record, or io.EOF at end of file.  A file
// truncated mid-record is reported as an error, not EOF.
func (r *Reader) Read() (Record, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, errors.Wrap(err, "bus: reading record")
	}
	return DecodeRecord(r.buf[:]), nil
}

// ReadChunk reads up to n records.  It returns a shorter (possibly
// empty) slice at end of file; io.EOF is returned only when no records
// remain.  This is the batching primitive of the external sorter.
func (r *Reader) ReadChunk(n int) ([]Record, error) {
	recs := make([]Record, 0, n)
	for len(recs) < n {
		rec, err := r.Read()
		if err == io.EOF {
			if len(recs) == 0 {
				return nil, io.EOF
			}
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReadAll reads every remaining record.  Only suitable for inputs known
// to fit in memory.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}
