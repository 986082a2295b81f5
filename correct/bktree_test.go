package correct

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBKTreeFind(t *testing.T) {
	tr := newBKTree(hamming)
	for _, w := range []string{"AAAA", "AATT", "TTTT", "GGGG", "AAAT"} {
		tr.insert(w)
	}
	require.Equal(t, 5, tr.size)

	assert.Equal(t, []bkMatch{{"AAAA", 0}, {"AAAT", 1}}, tr.find("AAAA", 1))
	assert.Equal(t, []bkMatch{{"AAAT", 0}, {"AAAA", 1}, {"AATT", 1}}, tr.find("AAAT", 1))
	assert.Empty(t, tr.find("CCCC", 1))
	assert.Equal(t, []bkMatch{{"GGGG", 2}}, tr.find("GGCC", 2))
}

func TestBKTreeDuplicateInsert(t *testing.T) {
	tr := newBKTree(hamming)
	tr.insert("ACGT")
	tr.insert("ACGT")
	assert.Equal(t, 1, tr.size)
	assert.Equal(t, []bkMatch{{"ACGT", 0}}, tr.find("ACGT", 1))
}

func TestBKTreeEmpty(t *testing.T) {
	tr := newBKTree(hamming)
	assert.Empty(t, tr.find("AAAA", 1))
}

// The tree must return exactly what a brute-force scan returns.
func TestBKTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bases := []byte{'A', 'C', 'G', 'T'}
	randSeq := func() string {
		b := make([]byte, 8)
		for i := range b {
			b[i] = bases[rng.Intn(4)]
		}
		return string(b)
	}
	words := map[string]bool{}
	tr := newBKTree(hamming)
	for i := 0; i < 500; i++ {
		w := randSeq()
		words[w] = true
		tr.insert(w)
	}
	for i := 0; i < 200; i++ {
		q := randSeq()
		for _, maxDist := range []int{0, 1, 2} {
			want := map[string]bool{}
			for w := range words {
				if hamming(q, w) <= maxDist {
					want[w] = true
				}
			}
			got := map[string]bool{}
			for _, m := range tr.find(q, maxDist) {
				got[m.word] = true
			}
			require.Equal(t, want, got, "query %s maxDist %d", q, maxDist)
		}
	}
}

func TestHamming(t *testing.T) {
	assert.Equal(t, 0, hamming("ACGT", "ACGT"))
	assert.Equal(t, 1, hamming("ACGT", "ACGA"))
	assert.Equal(t, 4, hamming("AAAA", "TTTT"))
	assert.Panics(t, func() { hamming("A", "AA") })
}
