package bus

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// Writer writes BUS records sequentially.  The header is written before
// the first record (or on Flush, for record-less files).
type Writer struct {
	w           *bufio.Writer
	header      Header
	wroteHeader bool
	buf         [RecordBytes]byte
}

// NewWriter returns a Writer that writes a BUS file with header h to w.
func NewWriter(w io.Writer, h Header) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<20), header: h}
}

// Header returns the header the Writer was created with.
func (w *Writer) Header() Header { return w.header }

func (w *Writer) ensureHeader() error {
	if w.wroteHeader {
		return nil
	}
	if err := writeHeader(w.w, w.header); err != nil {
		return err
	}
	w.wroteHeader = true
	return nil
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	if err := w.ensureHeader(); err != nil {
		return err
	}
	EncodeRecord(w.buf[:], rec)
	_, err := w.w.Write(w.buf[:])
	return errors.Wrap(err, "bus: writing record")
}

// WriteList appends recs in order.
func (w *Writer) WriteList(recs []Record) error {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes the header if nothing has been written yet and flushes
// buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.ensureHeader(); err != nil {
		return err
	}
	return errors.Wrap(w.w.Flush(), "bus: flush")
}
