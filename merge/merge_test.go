package merge_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/bus/encoding/bus"
	"github.com/grailbio/bus/merge"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newSource(t *testing.T, recs []bus.Record) merge.Source {
	t.Helper()
	var buf bytes.Buffer
	w := bus.NewWriter(&buf, bus.NewHeader(16, 12))
	assert.NoError(t, w.WriteList(recs))
	assert.NoError(t, w.Flush())
	r, err := bus.NewReader(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	return bus.NewGroupScanner(r, bus.GroupCBUMI)
}

func collect(t *testing.T, m *merge.MultiScanner) []merge.Group {
	t.Helper()
	var out []merge.Group
	for m.Scan() {
		out = append(out, m.Group())
	}
	assert.NoError(t, m.Err())
	return out
}

func TestMergeTwoSources(t *testing.T) {
	s1r1 := bus.Record{CB: 0, UMI: 1, EC: 0, Count: 1}
	s1r2 := bus.Record{CB: 0, UMI: 2, EC: 1, Count: 1}
	s2r1 := bus.Record{CB: 0, UMI: 1, EC: 5, Count: 2}
	s2r2 := bus.Record{CB: 1, UMI: 0, EC: 0, Count: 1}

	m := merge.NewMultiScanner(map[string]merge.Source{
		"s1": newSource(t, []bus.Record{s1r1, s1r2}),
		"s2": newSource(t, []bus.Record{s2r1, s2r2}),
	})
	groups := collect(t, m)
	expect.EQ(t, len(groups), 3)

	// (0,1) exists in both sources.
	expect.EQ(t, groups[0].Key, bus.CBUMI{CB: 0, UMI: 1})
	expect.EQ(t, groups[0].Records, map[string][]bus.Record{
		"s1": {s1r1},
		"s2": {s2r1},
	})
	// (0,2) only in s1: s2 is absent from the map, not empty.
	expect.EQ(t, groups[1].Key, bus.CBUMI{CB: 0, UMI: 2})
	expect.EQ(t, groups[1].Records, map[string][]bus.Record{"s1": {s1r2}})
	// (1,0) only in s2.
	expect.EQ(t, groups[2].Key, bus.CBUMI{CB: 1, UMI: 0})
	expect.EQ(t, groups[2].Records, map[string][]bus.Record{"s2": {s2r2}})
}

func TestMergeCompleteness(t *testing.T) {
	// Keys across all sources are visited exactly once, ascending.
	sources := map[string]merge.Source{
		"a": newSource(t, []bus.Record{{CB: 0, UMI: 1, Count: 1}, {CB: 1, UMI: 2, Count: 1}, {CB: 3, UMI: 0, Count: 1}}),
		"b": newSource(t, []bus.Record{{CB: 1, UMI: 2, Count: 1}, {CB: 2, UMI: 3, Count: 1}, {CB: 3, UMI: 0, Count: 1}}),
		"c": newSource(t, []bus.Record{{CB: 0, UMI: 1, Count: 1}}),
	}
	m := merge.NewMultiScanner(sources)
	var keys []bus.CBUMI
	for m.Scan() {
		keys = append(keys, m.Group().Key)
	}
	assert.NoError(t, m.Err())
	expect.EQ(t, keys, []bus.CBUMI{
		{CB: 0, UMI: 1},
		{CB: 1, UMI: 2},
		{CB: 2, UMI: 3},
		{CB: 3, UMI: 0},
	})
}

func TestMergeSingleSource(t *testing.T) {
	r1 := bus.Record{CB: 0, UMI: 0, EC: 1, Count: 1}
	r2 := bus.Record{CB: 0, UMI: 0, EC: 2, Count: 1}
	r3 := bus.Record{CB: 9, UMI: 9, EC: 0, Count: 4}
	m := merge.NewMultiScanner(map[string]merge.Source{
		"only": newSource(t, []bus.Record{r1, r2, r3}),
	})
	groups := collect(t, m)
	expect.EQ(t, len(groups), 2)
	expect.EQ(t, groups[0].Records["only"], []bus.Record{r1, r2})
	expect.EQ(t, groups[1].Records["only"], []bus.Record{r3})
}

func TestMergeNoSources(t *testing.T) {
	m := merge.NewMultiScanner(nil)
	expect.False(t, m.Scan())
	assert.NoError(t, m.Err())
}

func TestMergeEmptySource(t *testing.T) {
	r1 := bus.Record{CB: 1, UMI: 1, Count: 1}
	m := merge.NewMultiScanner(map[string]merge.Source{
		"empty": newSource(t, nil),
		"full":  newSource(t, []bus.Record{r1}),
	})
	groups := collect(t, m)
	expect.EQ(t, len(groups), 1)
	expect.EQ(t, groups[0].Records, map[string][]bus.Record{"full": {r1}})
}

func TestGroupFlatten(t *testing.T) {
	g := merge.Group{
		Key: bus.CBUMI{CB: 1, UMI: 1},
		Records: map[string][]bus.Record{
			"z": {{CB: 1, UMI: 1, EC: 9, Count: 1}},
			"a": {{CB: 1, UMI: 1, EC: 3, Count: 1}, {CB: 1, UMI: 1, EC: 4, Count: 1}},
		},
	}
	// Flatten orders by source name for determinism.
	expect.EQ(t, g.Flatten(), []bus.Record{
		{CB: 1, UMI: 1, EC: 3, Count: 1},
		{CB: 1, UMI: 1, EC: 4, Count: 1},
		{CB: 1, UMI: 1, EC: 9, Count: 1},
	})
}
