// Package mtree implements a fixed-depth incremental Merkle commitment tree.
//
// The tree stores every row in one flat slice, leaves first and root last.
// Rows of odd width are padded with the empty root for that height before
// the next row is derived, so a partially filled tree always yields the same
// root as a tree whose missing leaves were blank from the start. That
// equivalence is what lets Merge splice already-built subtrees together
// without recomputing their interior rows.
package mtree

import "errors"

var (
	// ErrDepthMismatch indicates that subtrees of differing depth were merged.
	ErrDepthMismatch = errors.New("mtree: subtree depth mismatch")

	// ErrMergeShape indicates that merge preconditions were violated: all
	// subtrees except the last must be full with the same power-of-two leaf
	// count, and the last must not be larger.
	ErrMergeShape = errors.New("mtree: subtrees must be equal power-of-two sized, last may be smaller")

	// ErrPosition indicates a path request for a position without a leaf.
	ErrPosition = errors.New("mtree: position exceeds leaf count")
)

// NodeHasher supplies the two node operations the tree needs: the canonical
// empty leaf and the height-tagged parent of two children. Tagging by height
// keeps hashes from one row from colliding with hashes from another.
type NodeHasher[N comparable] interface {
	Combine(height int, left, right N) N
	Blank() N
}

// Tree is an immutable commitment tree of a fixed depth. The zero value is
// not usable; construct with New or Merge.
type Tree[N comparable] struct {
	hasher NodeHasher[N]
	depth  int
	nodes  []N
	leaves int
}

// New builds a tree of the given depth from the leaf nodes, inferring every
// higher row with the hasher. The number of leaves must not exceed 2^depth.
func New[N comparable](hasher NodeHasher[N], depth int, leaves []N) *Tree[N] {
	// Capacity follows from ceil(ceil(x/m)/n) = ceil(x/(mn)): one padding
	// node at most per row on top of the strict halving.
	nodes := make([]N, 0, 2*len(leaves)+depth)
	nodes = append(nodes, leaves...)
	return complete(hasher, depth, nodes, 0, len(leaves), 0, len(leaves))
}

// Merge combines subtrees into one larger tree of the same depth. All
// subtrees except the last must be full with the same power-of-two leaf
// count; the last may be smaller or partial. Rows already present in the
// subtrees are spliced across rather than recomputed. An empty input yields
// the empty tree and a single input is returned as is.
func Merge[N comparable](hasher NodeHasher[N], depth int, subtrees []*Tree[N]) (*Tree[N], error) {
	if len(subtrees) == 0 {
		return New(hasher, depth, nil), nil
	}
	for _, st := range subtrees {
		if st.depth != depth {
			return nil, ErrDepthMismatch
		}
	}
	if len(subtrees) == 1 {
		return subtrees[0], nil
	}
	size := subtrees[0].leaves
	if size == 0 || size&(size-1) != 0 {
		return nil, ErrMergeShape
	}
	last := subtrees[len(subtrees)-1]
	for _, st := range subtrees[1 : len(subtrees)-1] {
		if st.leaves != size {
			return nil, ErrMergeShape
		}
	}
	if last.leaves > size {
		return nil, ErrMergeShape
	}

	height := 0
	prevFirstStart, prevFirstWidth := 0, size
	prevLastStart, prevLastWidth := 0, last.leaves
	prevStart, prevWidth := 0, (len(subtrees)-1)*size+last.leaves
	leaves := prevWidth
	nodes := make([]N, 0, 2*leaves+depth)
	for {
		// The right-most parent needs a right child; the last subtree
		// materialized its own padding node, so widening the window by one
		// picks it up.
		if prevLastWidth%2 == 1 && prevFirstWidth > 1 {
			prevLastWidth++
			prevWidth++
		}
		for _, st := range subtrees[:len(subtrees)-1] {
			nodes = append(nodes, st.nodes[prevFirstStart:prevFirstStart+prevFirstWidth]...)
		}
		nodes = append(nodes, last.nodes[prevLastStart:prevLastStart+prevLastWidth]...)
		// The full subtrees have no rows above their own root.
		if prevFirstWidth == 1 {
			break
		}
		prevFirstStart += prevFirstWidth
		prevFirstWidth /= 2
		prevLastStart += prevLastWidth
		prevLastWidth /= 2
		prevStart += prevWidth
		prevWidth /= 2
		height++
	}
	return complete(hasher, depth, nodes, prevStart, prevWidth, height, leaves), nil
}

// complete derives the remaining rows above fromHeight given the highest row
// already present in nodes. Shared by New (fromHeight 0) and Merge.
func complete[N comparable](hasher NodeHasher[N], depth int, nodes []N, prevStart, prevWidth, fromHeight, leaves int) *Tree[N] {
	emptyRoot := hasher.Blank()
	for height := 0; height < fromHeight; height++ {
		emptyRoot = hasher.Combine(height, emptyRoot, emptyRoot)
	}
	for height := fromHeight; height < depth; height++ {
		if prevWidth%2 == 1 {
			// Pad the row so the right-most parent has a right child.
			prevWidth++
			nodes = append(nodes, emptyRoot)
		}
		for j := 0; j < prevWidth/2; j++ {
			nodes = append(nodes, hasher.Combine(height, nodes[prevStart+2*j], nodes[prevStart+2*j+1]))
		}
		prevStart += prevWidth
		prevWidth /= 2
		emptyRoot = hasher.Combine(height, emptyRoot, emptyRoot)
	}
	return &Tree[N]{hasher: hasher, depth: depth, nodes: nodes, leaves: leaves}
}

// Root returns the root node of the tree. A tree with no leaves yields the
// canonical all-blank root for its depth.
func (t *Tree[N]) Root() N {
	if len(t.nodes) == 0 {
		return EmptyRoot(t.hasher, t.depth)
	}
	return t.nodes[len(t.nodes)-1]
}

// Size returns the number of leaf nodes in the tree.
func (t *Tree[N]) Size() int {
	return t.leaves
}

// Depth returns the fixed depth the tree was constructed with.
func (t *Tree[N]) Depth() int {
	return t.depth
}

// Path derives the authentication path for the leaf at the given position.
// The same odd-width padding rule as construction applies at every level,
// so the returned path verifies against Root for the committed leaf.
func (t *Tree[N]) Path(position int) (*Path[N], error) {
	if position < 0 || position >= t.leaves {
		return nil, ErrPosition
	}
	elems := make([]Element[N], t.depth)
	pos := position
	start, width := 0, t.leaves
	for height := 0; height < t.depth; height++ {
		// Odd rows carry their padding node in storage, so the sibling is
		// always indexable once the width is rounded up.
		if width%2 == 1 {
			width++
		}
		if pos%2 == 0 {
			elems[height] = Element[N]{Sibling: t.nodes[start+pos+1]}
		} else {
			elems[height] = Element[N]{Sibling: t.nodes[start+pos-1], OnRight: true}
		}
		start += width
		width /= 2
		pos /= 2
	}
	return &Path[N]{hasher: t.hasher, elems: elems, position: uint64(position)}, nil
}

// EmptyRoot returns the root of an all-blank tree of the given depth.
func EmptyRoot[N comparable](hasher NodeHasher[N], depth int) N {
	root := hasher.Blank()
	for height := 0; height < depth; height++ {
		root = hasher.Combine(height, root, root)
	}
	return root
}
