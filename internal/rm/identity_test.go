package rm_test

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"resourcemachine/internal/mtree"
	"resourcemachine/internal/rm"
)

func TestNewDigestIsCanonical(t *testing.T) {
	// Reducing a value above the modulus must land back in range.
	over := make([]byte, 40)
	for i := range over {
		over[i] = 0xff
	}
	d := rm.NewDigest(over)
	var e fr.Element
	e.SetBytes(d[:])
	require.Equal(t, rm.Digest(e.Bytes()), d)

	require.Equal(t, rm.NewDigest([]byte{7}), rm.NewDigest([]byte{0, 0, 7}))
}

func TestDigestOrdering(t *testing.T) {
	a := rm.NewDigest([]byte{1})
	b := rm.NewDigest([]byte{2})
	require.Negative(t, a.Cmp(b))
	require.Positive(t, b.Cmp(a))
	require.Zero(t, a.Cmp(a))
	require.True(t, rm.Digest{}.IsZero())
	require.False(t, a.IsZero())
}

func TestCommitmentDeterministicAndDistinct(t *testing.T) {
	key := rm.NullifierKeyFromDigest(rm.NewDigest([]byte{1}))
	r := newResource(t, key, 10, false)
	require.Equal(t, r.Commitment(), r.Commitment())

	for _, mutate := range []func(*rm.Resource){
		func(x *rm.Resource) { x.Quantity++ },
		func(x *rm.Resource) { x.Ephemeral = true },
		func(x *rm.Resource) { x.Nonce = rm.NewDigest([]byte{0xde}) },
		func(x *rm.Resource) { x.LogicRef = rm.NewDigest([]byte{0xad}) },
		func(x *rm.Resource) { x.RandSeed = rm.NewDigest([]byte{0xbe}) },
	} {
		mutated := r
		mutate(&mutated)
		require.NotEqual(t, r.Commitment(), mutated.Commitment())
	}
}

func TestKindDependsOnLogicAndLabelOnly(t *testing.T) {
	key := rm.NullifierKeyFromDigest(rm.NewDigest([]byte{1}))
	a := newResource(t, key, 10, false)
	b := a
	b.Quantity = 99
	b.Nonce = rm.NewDigest([]byte{5})
	require.Equal(t, a.Kind(), b.Kind())

	c := a
	c.LabelRef = rm.NewDigest([]byte{6})
	require.NotEqual(t, a.Kind(), c.Kind())
}

func TestNullifierNeedsMatchingKey(t *testing.T) {
	key, err := rm.GenerateNullifierKey()
	require.NoError(t, err)
	r := newResource(t, key, 10, false)

	nf, err := r.Nullifier(key)
	require.NoError(t, err)
	require.False(t, nf.IsZero())

	wrong, err := rm.GenerateNullifierKey()
	require.NoError(t, err)
	_, err = r.Nullifier(wrong)
	var mismatch *rm.KeyMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, r.NkCommitment, mismatch.Expected)
}

func TestTreeHasherDomainSeparation(t *testing.T) {
	h := rm.TreeHasher()
	l := rm.NewDigest([]byte{1})
	r := rm.NewDigest([]byte{2})
	require.NotEqual(t, h.Combine(0, l, r), h.Combine(1, l, r))
	require.NotEqual(t, h.Combine(0, l, r), h.Combine(0, r, l))

	require.Equal(t, rm.EmptyRoot(rm.TreeDepth),
		mtree.New[rm.Digest](h, rm.TreeDepth, nil).Root())
	require.NotEqual(t, rm.EmptyRoot(3), rm.EmptyRoot(4))
}

func TestBytesDigestChunking(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = byte(i)
	}
	require.Equal(t, rm.BytesDigest(rm.DomainProgram, long), rm.BytesDigest(rm.DomainProgram, long))
	require.NotEqual(t, rm.BytesDigest(rm.DomainProgram, long), rm.BytesDigest(rm.DomainProgram, long[:99]))
	require.NotEqual(t, rm.BytesDigest(rm.DomainProgram, long), rm.BytesDigest(rm.DomainKind, long))

	// Left-padded short pieces must not collide across input lengths.
	require.NotEqual(t, rm.BytesDigest(rm.DomainProgram, []byte{1}),
		rm.BytesDigest(rm.DomainProgram, []byte{0, 1}))
}
