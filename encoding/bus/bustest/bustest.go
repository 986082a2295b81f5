// Package bustest provides helpers for tests that need BUS files on
// disk.
package bustest

import (
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bus/encoding/bus"
)

// DefaultHeader is the header used by WriteFile: 16bp barcodes, 12bp
// UMIs, the common 10x configuration.
var DefaultHeader = bus.NewHeader(16, 12)

// WriteFile writes recs to a BUS file named name under dir and returns
// its path.
func WriteFile(t testing.TB, dir, name string, recs []bus.Record) string {
	t.Helper()
	ctx := vcontext.Background()
	path := filepath.Join(dir, name)
	w, err := bus.CreatePath(ctx, path, DefaultHeader)
	if err != nil {
		t.Fatalf("bustest: create %s: %v", path, err)
	}
	if err := w.WriteList(recs); err != nil {
		t.Fatalf("bustest: write %s: %v", path, err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("bustest: close %s: %v", path, err)
	}
	return path
}

// ReadFile reads every record of the BUS file at path.
func ReadFile(t testing.TB, path string) []bus.Record {
	t.Helper()
	ctx := vcontext.Background()
	r, err := bus.OpenPath(ctx, path)
	if err != nil {
		t.Fatalf("bustest: open %s: %v", path, err)
	}
	defer r.Close(ctx) // nolint: errcheck
	recs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("bustest: read %s: %v", path, err)
	}
	return recs
}
