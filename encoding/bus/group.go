package bus

import "io"

// GroupKey selects the grouping granularity of a GroupScanner.
type GroupKey int

const (
	// GroupCBUMI groups records sharing (CB, UMI).
	GroupCBUMI GroupKey = iota
	// GroupCB groups records sharing CB; the UMI field of the group
	// key is zero.
	GroupCB
)

func (g GroupKey) keyOf(r Record) CBUMI {
	if g == GroupCB {
		return CBUMI{CB: r.CB}
	}
	return r.Key()
}

// GroupScanner splits a record stream into runs of records sharing a
// group key, in stream order.  The input must already be sorted; the
// scanner only detects key transitions, it does not reorder.
//
// Usage:
//
//	s := NewGroupScanner(reader, GroupCBUMI)
//	for s.Scan() {
//		use s.Key(), s.Records()
//	}
//	if err := s.Err(); err != nil { ... }
type GroupScanner struct {
	src RecordSource
	by  GroupKey

	key  CBUMI
	recs []Record

	pending    Record
	hasPending bool
	eof        bool
	err        error
}

// NewGroupScanner returns a scanner over src grouping by the given key.
func NewGroupScanner(src RecordSource, by GroupKey) *GroupScanner {
	return &GroupScanner{src: src, by: by}
}

// Scan advances to the next group.  It returns false at end of stream
// or on error; Err distinguishes the two.
func (s *GroupScanner) Scan() bool {
	if s.err != nil || (s.eof && !s.hasPending) {
		return false
	}
	if !s.hasPending {
		rec, err := s.src.Read()
		if err == io.EOF {
			s.eof = true
			return false
		}
		if err != nil {
			s.err = err
			return false
		}
		s.pending = rec
	}
	s.key = s.by.keyOf(s.pending)
	s.recs = append(s.recs[:0:0], s.pending)
	s.hasPending = false
	for {
		rec, err := s.src.Read()
		if err == io.EOF {
			s.eof = true
			return true
		}
		if err != nil {
			s.err = err
			return false
		}
		if s.by.keyOf(rec) != s.key {
			s.pending = rec
			s.hasPending = true
			return true
		}
		s.recs = append(s.recs, rec)
	}
}

// Key returns the group key of the current group.
func (s *GroupScanner) Key() CBUMI { return s.key }

// Records returns the records of the current group.  The slice is
// owned by the caller; the scanner allocates a fresh one per group.
func (s *GroupScanner) Records() []Record { return s.recs }

// Err returns the first error encountered, if any.
func (s *GroupScanner) Err() error { return s.err }
