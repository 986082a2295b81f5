package bus

import (
	"strings"

	"github.com/pkg/errors"
)

// Barcodes and UMIs are stored 2-bit encoded, two bits per base, first
// base in the highest-order position: A=0, C=1, G=2, T=3.  A sequence
// of up to 32 bases fits one uint64.

var baseChars = [4]byte{'A', 'C', 'G', 'T'}

func baseCode(c byte) (uint64, bool) {
	switch c {
	case 'A':
		return 0, true
	case 'C':
		return 1, true
	case 'G':
		return 2, true
	case 'T':
		return 3, true
	}
	return 0, false
}

// SeqToInt encodes a fixed-length ACGT sequence into its integer form.
func SeqToInt(seq string) (uint64, error) {
	if len(seq) > 32 {
		return 0, errors.Errorf("bus: sequence %q longer than 32 bases", seq)
	}
	var v uint64
	for i := 0; i < len(seq); i++ {
		code, ok := baseCode(seq[i])
		if !ok {
			return 0, errors.Errorf("bus: invalid base %q in sequence %q", seq[i], seq)
		}
		v = v<<2 | code
	}
	return v, nil
}

// IntToSeq decodes the integer form of a sequence of n bases.  It is
// the inverse of SeqToInt for sequences of that length.
func IntToSeq(v uint64, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := n - 1; i >= 0; i-- {
		b.WriteByte(baseChars[(v>>(2*uint(i)))&3])
	}
	return b.String()
}
