// Package merge implements a synchronized k-way merge over named,
// independently sorted, key-grouped record streams.  At each step the
// scanner finds the minimum (CB, UMI) key across the current heads of
// all sources, collects the records of every source positioned at that
// key, advances exactly those sources, and yields one Group.  Keys are
// therefore visited in strictly ascending order and each key appears
// exactly once, no matter how many sources contain it.
//
// The external sorter merges temporary runs this way, sorted-file
// concatenation merges whole files, and overlap extraction merges two
// files and keeps only the keys both contain.
package merge

import (
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/bus/encoding/bus"
)

// Source is one sorted, key-grouped input stream.  Scan advances to
// the next group and reports whether one exists; Key and Records are
// valid after a true Scan.  Keys must be strictly ascending across
// Scan calls; this package does not re-validate producer ordering.
// *bus.GroupScanner implements Source.
type Source interface {
	Scan() bool
	Key() bus.CBUMI
	Records() []bus.Record
	Err() error
}

// Group is the per-key output of a MultiScanner: the key plus, for
// every source that has records at that key, those records keyed by
// source name.  Sources without the key are absent from the map.
type Group struct {
	Key     bus.CBUMI
	Records map[string][]bus.Record
}

// Flatten returns all records of the group, ordered by source name so
// the result is deterministic.
func (g Group) Flatten() []bus.Record {
	names := make([]string, 0, len(g.Records))
	for name := range g.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []bus.Record
	for _, name := range names {
		out = append(out, g.Records[name]...)
	}
	return out
}

// cursor is the current head of one source.  Cursors live in an llrb
// tree ordered by (head key, seq); seq is the source's registration
// index and breaks ties so that equal keys from different sources keep
// distinct tree nodes.
type cursor struct {
	seq  int
	name string
	src  Source
	key  bus.CBUMI
	recs []bus.Record
}

func (c *cursor) Compare(o llrb.Comparable) int {
	oc := o.(*cursor)
	if v := c.key.Compare(oc.key); v != 0 {
		return v
	}
	return c.seq - oc.seq
}

// MultiScanner drives the merge.  Create one with NewMultiScanner,
// then iterate Scan/Group; Err reports the first source error.
type MultiScanner struct {
	tree llrb.Tree
	cur  Group
	errs []Source
}

// NewMultiScanner returns a scanner over the named sources.  Sources
// are registered in sorted name order, so tie-breaking and Group
// contents are independent of map iteration order.
func NewMultiScanner(sources map[string]Source) *MultiScanner {
	m := &MultiScanner{}
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for seq, name := range names {
		src := sources[name]
		m.errs = append(m.errs, src)
		if src.Scan() {
			m.tree.Insert(&cursor{seq: seq, name: name, src: src, key: src.Key(), recs: src.Records()})
		}
	}
	return m
}

// Scan advances to the next key.  It returns false once every source
// is exhausted.
func (m *MultiScanner) Scan() bool {
	if m.tree.Len() == 0 {
		return false
	}
	minKey := m.tree.Min().(*cursor).key
	var heads []*cursor
	m.tree.Do(func(item llrb.Comparable) bool {
		c := item.(*cursor)
		if c.key.Compare(minKey) != 0 {
			return true // past the minimum key, stop
		}
		heads = append(heads, c)
		return false
	})
	m.cur = Group{Key: minKey, Records: make(map[string][]bus.Record, len(heads))}
	for _, c := range heads {
		m.cur.Records[c.name] = c.recs
		m.tree.Delete(c)
		if c.src.Scan() {
			c.key, c.recs = c.src.Key(), c.src.Records()
			m.tree.Insert(c)
		}
	}
	return true
}

// Group returns the group produced by the last successful Scan.
func (m *MultiScanner) Group() Group { return m.cur }

// Err returns the first error reported by any source.
func (m *MultiScanner) Err() error {
	for _, src := range m.errs {
		if err := src.Err(); err != nil {
			return err
		}
	}
	return nil
}
