package bus

import (
	"encoding/binary"
	"fmt"
)

// RecordBytes is the on-disk size of one encoded Record.
const RecordBytes = 32

// Record is one BUS record.  Count is the only mutable field; merging
// two records with equal ordering keys sums their counts.
type Record struct {
	CB    uint64 // 2-bit encoded cell barcode
	UMI   uint64 // 2-bit encoded molecular identifier
	EC    uint32 // equivalence class ID
	Count uint32 // number of reads
	Flag  uint32 // opaque passthrough bits
}

func (r Record) String() string {
	return fmt.Sprintf("(cb:%d umi:%d ec:%d count:%d flag:%d)", r.CB, r.UMI, r.EC, r.Count, r.Flag)
}

// Compare returns -1, 0, or 1 depending on how r orders relative to o
// under the full sort key (CB, UMI, EC, Flag).  Count does not
// participate in ordering.
func (r Record) Compare(o Record) int {
	if c := compareU64(r.CB, o.CB); c != 0 {
		return c
	}
	if c := compareU64(r.UMI, o.UMI); c != 0 {
		return c
	}
	if c := compareU64(uint64(r.EC), uint64(o.EC)); c != 0 {
		return c
	}
	return compareU64(uint64(r.Flag), uint64(o.Flag))
}

// Less reports whether r sorts before o under the full sort key.
func (r Record) Less(o Record) bool { return r.Compare(o) < 0 }

// SameKey reports whether r and o are mergeable, i.e. share the full
// sort key.
func (r Record) SameKey(o Record) bool { return r.Compare(o) == 0 }

func compareU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CBUMI is the coarse grouping key used by the multi-source merge: a
// cell barcode plus UMI, ignoring EC and Flag.
type CBUMI struct {
	CB  uint64
	UMI uint64
}

// Key returns the coarse (CB, UMI) key of r.
func (r Record) Key() CBUMI { return CBUMI{CB: r.CB, UMI: r.UMI} }

// Compare returns -1, 0, or 1 for the lexicographic (CB, UMI) order.
func (k CBUMI) Compare(o CBUMI) int {
	if c := compareU64(k.CB, o.CB); c != 0 {
		return c
	}
	return compareU64(k.UMI, o.UMI)
}

func (k CBUMI) String() string { return fmt.Sprintf("(%d,%d)", k.CB, k.UMI) }

// EncodeRecord writes the 32-byte wire form of r into b.
// b must be at least RecordBytes long.
func EncodeRecord(b []byte, r Record) {
	binary.LittleEndian.PutUint64(b[0:8], r.CB)
	binary.LittleEndian.PutUint64(b[8:16], r.UMI)
	binary.LittleEndian.PutUint32(b[16:20], r.EC)
	binary.LittleEndian.PutUint32(b[20:24], r.Count)
	binary.LittleEndian.PutUint32(b[24:28], r.Flag)
	binary.LittleEndian.PutUint32(b[28:32], 0) // pad, always zero
}

// DecodeRecord parses the 32-byte wire form in b.
func DecodeRecord(b []byte) Record {
	return Record{
		CB:    binary.LittleEndian.Uint64(b[0:8]),
		UMI:   binary.LittleEndian.Uint64(b[8:16]),
		EC:    binary.LittleEndian.Uint32(b[16:20]),
		Count: binary.LittleEndian.Uint32(b[20:24]),
		Flag:  binary.LittleEndian.Uint32(b[24:28]),
	}
}
