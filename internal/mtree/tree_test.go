package mtree

import (
	"crypto/sha256"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// shaHasher is a test hasher over sha256. Production code injects a
// field-arithmetic hasher; the tree itself never looks inside a node.
type shaHasher struct{}

func (shaHasher) Combine(height int, left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{byte(height)})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (shaHasher) Blank() [32]byte {
	return [32]byte{}
}

func leaf(b byte) [32]byte {
	var n [32]byte
	n[0] = b
	n[31] = b
	return n
}

func makeLeaves(n int) [][32]byte {
	out := make([][32]byte, n)
	for i := range out {
		out[i] = leaf(byte(i + 1))
	}
	return out
}

func TestEmptyTreeRoot(t *testing.T) {
	h := shaHasher{}
	tr := New[[32]byte](h, 4, nil)
	require.Equal(t, 0, tr.Size())
	require.Equal(t, EmptyRoot[[32]byte](h, 4), tr.Root())

	// The empty root must equal the fold of blanks by hand.
	want := h.Blank()
	for height := 0; height < 4; height++ {
		want = h.Combine(height, want, want)
	}
	require.Equal(t, want, tr.Root())
}

func TestSingleLeafMatchesManualFold(t *testing.T) {
	h := shaHasher{}
	l := leaf(7)
	tr := New(h, 4, [][32]byte{l})

	node := l
	empty := h.Blank()
	for height := 0; height < 4; height++ {
		node = h.Combine(height, node, empty)
		empty = h.Combine(height, empty, empty)
	}
	require.Equal(t, node, tr.Root())
}

func TestPartialEqualsBlankPadded(t *testing.T) {
	h := shaHasher{}
	const depth = 5
	for n := 0; n <= 1<<depth; n++ {
		leaves := makeLeaves(n)
		padded := make([][32]byte, 1<<depth)
		copy(padded, leaves)
		require.Equal(t, New(h, depth, padded).Root(), New(h, depth, leaves).Root(),
			"leaf count %d", n)
	}
}

func TestPathVerifiesForEveryLeaf(t *testing.T) {
	h := shaHasher{}
	const depth = 5
	for n := 1; n <= 20; n++ {
		leaves := makeLeaves(n)
		tr := New(h, depth, leaves)
		for i, l := range leaves {
			p, err := tr.Path(i)
			require.NoError(t, err)
			require.Equal(t, uint64(i), p.Position())
			require.Len(t, p.Elements(), depth)
			require.Equal(t, tr.Root(), p.Root(l), "leaf %d of %d", i, n)
		}
	}
}

func TestPathOutOfRange(t *testing.T) {
	h := shaHasher{}
	tr := New(h, 4, makeLeaves(3))
	_, err := tr.Path(3)
	require.ErrorIs(t, err, ErrPosition)
	_, err = tr.Path(-1)
	require.ErrorIs(t, err, ErrPosition)
}

func TestPathRejectsWrongLeaf(t *testing.T) {
	h := shaHasher{}
	tr := New(h, 4, makeLeaves(5))
	p, err := tr.Path(2)
	require.NoError(t, err)
	require.NotEqual(t, tr.Root(), p.Root(leaf(99)))
}

func TestMergeEqualsBulkBuild(t *testing.T) {
	h := shaHasher{}
	const depth = 5
	cases := []struct {
		name   string
		size   int
		counts []int
	}{
		{"two full pairs", 2, []int{2, 2}},
		{"full plus partial", 4, []int{4, 3}},
		{"three full one partial", 2, []int{2, 2, 2, 1}},
		{"full plus full", 4, []int{4, 4}},
		{"eight plus five", 8, []int{8, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var all [][32]byte
			var subtrees []*Tree[[32]byte]
			next := byte(1)
			for _, c := range tc.counts {
				require.LessOrEqual(t, c, tc.size)
				part := make([][32]byte, c)
				for i := range part {
					part[i] = leaf(next)
					next++
				}
				all = append(all, part...)
				subtrees = append(subtrees, New(h, depth, part))
			}
			merged, err := Merge(h, depth, subtrees)
			require.NoError(t, err)
			bulk := New(h, depth, all)
			require.Equal(t, bulk.Root(), merged.Root())
			require.Equal(t, bulk.Size(), merged.Size())
			for i, l := range all {
				p, err := merged.Path(i)
				require.NoError(t, err)
				require.Equal(t, merged.Root(), p.Root(l))
			}
		})
	}
}

func TestMergeDegenerateInputs(t *testing.T) {
	h := shaHasher{}
	empty, err := Merge[[32]byte](h, 4, nil)
	require.NoError(t, err)
	require.Equal(t, EmptyRoot[[32]byte](h, 4), empty.Root())

	single := New(h, 4, makeLeaves(3))
	got, err := Merge(h, 4, []*Tree[[32]byte]{single})
	require.NoError(t, err)
	require.Equal(t, single.Root(), got.Root())
}

func TestMergeRejectsBadShapes(t *testing.T) {
	h := shaHasher{}
	full2 := New(h, 4, makeLeaves(2))
	full3 := New(h, 4, makeLeaves(3))
	full4 := New(h, 4, makeLeaves(4))
	wrongDepth := New(h, 3, makeLeaves(2))

	_, err := Merge(h, 4, []*Tree[[32]byte]{full3, full2})
	require.ErrorIs(t, err, ErrMergeShape)

	_, err = Merge(h, 4, []*Tree[[32]byte]{full2, full4})
	require.ErrorIs(t, err, ErrMergeShape)

	_, err = Merge(h, 4, []*Tree[[32]byte]{full4, full2, full4})
	require.ErrorIs(t, err, ErrMergeShape)

	_, err = Merge(h, 4, []*Tree[[32]byte]{full2, wrongDepth})
	require.ErrorIs(t, err, ErrDepthMismatch)

	emptyFirst := New[[32]byte](h, 4, nil)
	_, err = Merge(h, 4, []*Tree[[32]byte]{emptyFirst, full2})
	require.ErrorIs(t, err, ErrMergeShape)
}

func TestTreeProperties(t *testing.T) {
	h := shaHasher{}
	const depth = 6
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	genLeaves := gen.SliceOf(gen.UInt8()).Map(func(bs []byte) [][32]byte {
		if len(bs) > 1<<depth {
			bs = bs[:1<<depth]
		}
		out := make([][32]byte, len(bs))
		for i, b := range bs {
			out[i] = leaf(b)
			out[i][1] = byte(i)
		}
		return out
	})

	properties.Property("every path authenticates its leaf", prop.ForAll(
		func(leaves [][32]byte) bool {
			tr := New(h, depth, leaves)
			for i, l := range leaves {
				p, err := tr.Path(i)
				if err != nil || p.Root(l) != tr.Root() {
					return false
				}
			}
			return true
		}, genLeaves))

	properties.Property("append extends without disturbing prior paths", prop.ForAll(
		func(leaves [][32]byte) bool {
			if len(leaves) < 2 {
				return true
			}
			prefix := leaves[:len(leaves)-1]
			full := New(h, depth, leaves)
			for i, l := range prefix {
				p, err := full.Path(i)
				if err != nil || p.Root(l) != full.Root() {
					return false
				}
			}
			return true
		}, genLeaves))

	properties.Property("root depends on leaf order", prop.ForAll(
		func(leaves [][32]byte) bool {
			if len(leaves) < 2 || leaves[0] == leaves[1] {
				return true
			}
			swapped := make([][32]byte, len(leaves))
			copy(swapped, leaves)
			swapped[0], swapped[1] = swapped[1], swapped[0]
			return New(h, depth, leaves).Root() != New(h, depth, swapped).Root()
		}, genLeaves))

	properties.TestingRun(t)
}
