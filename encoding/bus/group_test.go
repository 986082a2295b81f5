package bus_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/bus/encoding/bus"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newTestSource(t *testing.T, recs []bus.Record) *bus.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := bus.NewWriter(&buf, bus.NewHeader(16, 12))
	assert.NoError(t, w.WriteList(recs))
	assert.NoError(t, w.Flush())
	r, err := bus.NewReader(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	return r
}

type group struct {
	key  bus.CBUMI
	recs []bus.Record
}

func scanAll(t *testing.T, s *bus.GroupScanner) []group {
	t.Helper()
	var out []group
	for s.Scan() {
		out = append(out, group{key: s.Key(), recs: s.Records()})
	}
	assert.NoError(t, s.Err())
	return out
}

func TestGroupByCBUMI(t *testing.T) {
	r1 := bus.Record{CB: 0, UMI: 1, EC: 0, Count: 12}
	r2 := bus.Record{CB: 0, UMI: 1, EC: 1, Count: 2}
	r3 := bus.Record{CB: 0, UMI: 2, EC: 0, Count: 12}
	r4 := bus.Record{CB: 1, UMI: 1, EC: 1, Count: 2}
	r5 := bus.Record{CB: 1, UMI: 2, EC: 1, Count: 2}

	s := bus.NewGroupScanner(newTestSource(t, []bus.Record{r1, r2, r3, r4, r5}), bus.GroupCBUMI)
	expect.EQ(t, scanAll(t, s), []group{
		{bus.CBUMI{CB: 0, UMI: 1}, []bus.Record{r1, r2}},
		{bus.CBUMI{CB: 0, UMI: 2}, []bus.Record{r3}},
		{bus.CBUMI{CB: 1, UMI: 1}, []bus.Record{r4}},
		{bus.CBUMI{CB: 1, UMI: 2}, []bus.Record{r5}},
	})
}

func TestGroupByCB(t *testing.T) {
	r1 := bus.Record{CB: 0, UMI: 1, Count: 1}
	r2 := bus.Record{CB: 0, UMI: 2, Count: 1}
	r3 := bus.Record{CB: 2, UMI: 1, Count: 1}

	s := bus.NewGroupScanner(newTestSource(t, []bus.Record{r1, r2, r3}), bus.GroupCB)
	expect.EQ(t, scanAll(t, s), []group{
		{bus.CBUMI{CB: 0}, []bus.Record{r1, r2}},
		{bus.CBUMI{CB: 2}, []bus.Record{r3}},
	})
}

func TestGroupEmpty(t *testing.T) {
	s := bus.NewGroupScanner(newTestSource(t, nil), bus.GroupCBUMI)
	expect.False(t, s.Scan())
	assert.NoError(t, s.Err())
}

func TestGroupSingleGroup(t *testing.T) {
	recs := []bus.Record{
		{CB: 5, UMI: 5, EC: 1, Count: 1},
		{CB: 5, UMI: 5, EC: 2, Count: 1},
		{CB: 5, UMI: 5, EC: 3, Count: 1},
	}
	s := bus.NewGroupScanner(newTestSource(t, recs), bus.GroupCBUMI)
	expect.True(t, s.Scan())
	expect.EQ(t, s.Records(), recs)
	expect.False(t, s.Scan())
}
