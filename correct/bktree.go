package correct

import "sort"

// bkTree is a Burkhard-Keller tree: a metric-space index supporting
// "all entries within distance d of a query" without scanning the
// whole set.  Each node's children are keyed by their distance to the
// node, so a lookup at node n with d = dist(query, n) only needs to
// descend into children whose edge distance lies in
// [d-maxDist, d+maxDist] (triangle inequality).
//
// The metric must be symmetric and satisfy the triangle inequality;
// Hamming distance over fixed-length barcodes does.
type bkTree struct {
	dist func(a, b string) int
	root *bkNode
	size int
}

type bkNode struct {
	word     string
	children map[int]*bkNode
}

type bkMatch struct {
	word string
	dist int
}

func newBKTree(dist func(a, b string) int) *bkTree {
	return &bkTree{dist: dist}
}

// insert adds word to the tree.  Inserting a word already present is a
// no-op.
func (t *bkTree) insert(word string) {
	if t.root == nil {
		t.root = &bkNode{word: word}
		t.size++
		return
	}
	n := t.root
	for {
		d := t.dist(word, n.word)
		if d == 0 {
			return
		}
		child := n.children[d]
		if child == nil {
			if n.children == nil {
				n.children = make(map[int]*bkNode)
			}
			n.children[d] = &bkNode{word: word}
			t.size++
			return
		}
		n = child
	}
}

// find returns every entry within maxDist of query, sorted by
// (distance, word) so results are deterministic.
func (t *bkTree) find(query string, maxDist int) []bkMatch {
	if t.root == nil {
		return nil
	}
	var out []bkMatch
	stack := []*bkNode{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		d := t.dist(query, n.word)
		if d <= maxDist {
			out = append(out, bkMatch{word: n.word, dist: d})
		}
		for edge, child := range n.children {
			if edge >= d-maxDist && edge <= d+maxDist {
				stack = append(stack, child)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dist != out[j].dist {
			return out[i].dist < out[j].dist
		}
		return out[i].word < out[j].word
	})
	return out
}
