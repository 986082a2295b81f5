package overlap

import (
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bus/encoding/bus"
	"github.com/grailbio/bus/encoding/bus/bustest"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	r1 := bus.Record{CB: 0, UMI: 21, EC: 0, Count: 2}
	r2 := bus.Record{CB: 1, UMI: 2, EC: 0, Count: 12}
	r3 := bus.Record{CB: 1, UMI: 3, EC: 0, Count: 2}
	r4 := bus.Record{CB: 3, UMI: 0, EC: 0, Count: 2}
	r5 := bus.Record{CB: 3, UMI: 0, EC: 1, Count: 2}

	s2 := bus.Record{CB: 1, UMI: 2, EC: 1, Count: 12}
	s3 := bus.Record{CB: 2, UMI: 3, EC: 1, Count: 2}
	s4 := bus.Record{CB: 3, UMI: 0, EC: 1, Count: 2}

	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	inA := bustest.WriteFile(t, tempDir, "a.bus", []bus.Record{r1, r2, r3, r4, r5})
	inB := bustest.WriteFile(t, tempDir, "b.bus", []bus.Record{s2, s3, s4})
	outA := filepath.Join(tempDir, "a-out.bus")
	outB := filepath.Join(tempDir, "b-out.bus")

	stats, err := Extract(ctx, inA, inB, outA, outB)
	require.NoError(t, err)

	// Shared keys are (1,2) and (3,0); each side keeps its own
	// records for them, (0,21), (1,3) and (2,3) are dropped.
	assert.Equal(t, 2, stats.SharedKeys)
	assert.Equal(t, []bus.Record{r2, r4, r5}, bustest.ReadFile(t, outA))
	assert.Equal(t, []bus.Record{s2, s4}, bustest.ReadFile(t, outB))
	assert.Equal(t, 3, stats.WrittenA)
	assert.Equal(t, 2, stats.WrittenB)
}

func TestExtractNoOverlap(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	inA := bustest.WriteFile(t, tempDir, "a.bus", []bus.Record{{CB: 0, UMI: 0, Count: 1}})
	inB := bustest.WriteFile(t, tempDir, "b.bus", []bus.Record{{CB: 1, UMI: 0, Count: 1}})
	outA := filepath.Join(tempDir, "a-out.bus")
	outB := filepath.Join(tempDir, "b-out.bus")

	stats, err := Extract(ctx, inA, inB, outA, outB)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SharedKeys)
	assert.Empty(t, bustest.ReadFile(t, outA))
	assert.Empty(t, bustest.ReadFile(t, outB))
}

// Overlap is keyed on (CB, UMI), not the full key: records with
// different ECs still count as shared.
func TestExtractKeyGranularity(t *testing.T) {
	a := bus.Record{CB: 5, UMI: 5, EC: 1, Count: 1}
	b1 := bus.Record{CB: 5, UMI: 5, EC: 2, Count: 4}
	b2 := bus.Record{CB: 5, UMI: 5, EC: 3, Count: 1}

	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	inA := bustest.WriteFile(t, tempDir, "a.bus", []bus.Record{a})
	inB := bustest.WriteFile(t, tempDir, "b.bus", []bus.Record{b1, b2})
	outA := filepath.Join(tempDir, "a-out.bus")
	outB := filepath.Join(tempDir, "b-out.bus")

	stats, err := Extract(ctx, inA, inB, outA, outB)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SharedKeys)
	assert.Equal(t, []bus.Record{a}, bustest.ReadFile(t, outA))
	assert.Equal(t, []bus.Record{b1, b2}, bustest.ReadFile(t, outB))
}
