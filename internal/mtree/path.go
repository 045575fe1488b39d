package mtree

// Element is one step of an authentication path: the sibling node at that
// height and whether the authenticated node is the right child there.
type Element[N comparable] struct {
	Sibling N
	OnRight bool
}

// Path authenticates a single leaf against a tree root. Element 0 is the
// leaf's immediate sibling; the last element sits just below the root.
type Path[N comparable] struct {
	hasher   NodeHasher[N]
	elems    []Element[N]
	position uint64
}

// NewPath builds a path from externally supplied elements, for callers that
// receive a path over the wire rather than from Tree.Path.
func NewPath[N comparable](hasher NodeHasher[N], elems []Element[N], position uint64) *Path[N] {
	return &Path[N]{hasher: hasher, elems: elems, position: position}
}

// Root folds the path over the given leaf and returns the implied tree root.
func (p *Path[N]) Root(leaf N) N {
	node := leaf
	for height, e := range p.elems {
		if e.OnRight {
			node = p.hasher.Combine(height, e.Sibling, node)
		} else {
			node = p.hasher.Combine(height, node, e.Sibling)
		}
	}
	return node
}

// Elements returns the path's elements, leaf level first.
func (p *Path[N]) Elements() []Element[N] {
	return p.elems
}

// Position returns the leaf index the path was derived for.
func (p *Path[N]) Position() uint64 {
	return p.position
}
