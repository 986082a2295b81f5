package bus

import (
	"context"

	"github.com/grailbio/base/file"
)

// PathReader is a Reader bound to a file opened by path.
type PathReader struct {
	*Reader
	f file.File
}

// OpenPath opens the BUS file at path.  The caller must call Close.
func OpenPath(ctx context.Context, path string) (*PathReader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f.Reader(ctx))
	if err != nil {
		_ = f.Close(ctx)
		return nil, err
	}
	return &PathReader{Reader: r, f: f}, nil
}

// Close releases the underlying file.
func (r *PathReader) Close(ctx context.Context) error {
	return r.f.Close(ctx)
}

// PathWriter is a Writer bound to a file created by path.
type PathWriter struct {
	*Writer
	f file.File
}

// CreatePath creates (or truncates) a BUS file at path with header h.
// The caller must call Close, which flushes pending records.
func CreatePath(ctx context.Context, path string, h Header) (*PathWriter, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	return &PathWriter{Writer: NewWriter(f.Writer(ctx), h), f: f}, nil
}

// Close flushes buffered records and closes the underlying file.
func (w *PathWriter) Close(ctx context.Context) error {
	err := w.Flush()
	if cerr := w.f.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
