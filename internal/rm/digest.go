// digest.go - canonical 32-byte digests and the native MiMC hashing core.
//
// Every digest in the system is a canonical BN254 scalar serialized big
// endian. Keeping the canonical form as an invariant of the type means any
// digest can be absorbed by the in-circuit MiMC gadget as a single field
// element, so native hashing and circuit hashing stay element-for-element
// identical.
package rm

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"resourcemachine/internal/mtree"
)

// Domain separation tags. Each tag is absorbed as its own field element
// before the payload, so hashes from different contexts never collide.
// Tree nodes use a combined tag of (DomainTreeNode << 8) | height.
const (
	DomainCommitment    byte = 0x01
	DomainNullifier     byte = 0x02
	DomainNullifierKey  byte = 0x03
	DomainKind          byte = 0x04
	DomainInstance      byte = 0x05
	DomainTreeNode      byte = 0x06
	DomainDeltaProof    byte = 0x07
	DomainAuthorization byte = 0x08
	DomainEncryptionKey byte = 0x09
	DomainLogicInstance byte = 0x0a
	DomainProgram       byte = 0x0b
)

// Digest is a 32-byte value, always a canonical BN254 scalar in big-endian
// form. Construct with NewDigest or the hashing helpers; a Digest built any
// other way may violate the canonical-form invariant.
type Digest [32]byte

// NewDigest reduces arbitrary big-endian bytes into a canonical digest.
func NewDigest(b []byte) Digest {
	var e fr.Element
	e.SetBytes(b)
	return Digest(e.Bytes())
}

// DigestFromBigInt reduces a big integer into a canonical digest.
func DigestFromBigInt(v *big.Int) Digest {
	var e fr.Element
	e.SetBigInt(v)
	return Digest(e.Bytes())
}

// RandomDigest draws a uniformly random scalar.
func RandomDigest() (Digest, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return Digest{}, err
	}
	return Digest(e.Bytes()), nil
}

// BigInt returns the digest as a big integer.
func (d Digest) BigInt() *big.Int {
	return new(big.Int).SetBytes(d[:])
}

// Cmp compares two digests as big-endian integers.
func (d Digest) Cmp(o Digest) int {
	return bytes.Compare(d[:], o[:])
}

// IsZero reports whether the digest is the zero scalar.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// hashDigest absorbs the tag and each chunk as one field element apiece.
// Chunks must be at most 32 bytes; 32-byte chunks must be canonical scalars,
// which every Digest is by construction.
func hashDigest(tag []byte, chunks ...[]byte) Digest {
	h := mimc.NewMiMC()
	_, _ = h.Write(tag)
	for _, c := range chunks {
		_, _ = h.Write(c)
	}
	return NewDigest(h.Sum(nil))
}

// BytesDigest hashes arbitrary-length bytes under the given domain tag by
// absorbing them in 16-byte pieces. A 16-byte piece is always below the
// modulus, so no canonicality restriction leaks to the caller. The input
// length is absorbed last; left-padded pieces would otherwise let inputs of
// different lengths collide.
func BytesDigest(tag byte, b []byte) Digest {
	h := mimc.NewMiMC()
	_, _ = h.Write([]byte{tag})
	total := len(b)
	for len(b) > 0 {
		n := len(b)
		if n > 16 {
			n = 16
		}
		_, _ = h.Write(b[:n])
		b = b[n:]
	}
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(total))
	_, _ = h.Write(size[:])
	return NewDigest(h.Sum(nil))
}

// digestHasher adapts MiMC hashing to the commitment tree's node seam.
type digestHasher struct{}

// Combine hashes two children under a tag that encodes both the tree-node
// domain and the height, so no row's hashes collide with another's.
func (digestHasher) Combine(height int, left, right Digest) Digest {
	return hashDigest([]byte{DomainTreeNode, byte(height)}, left[:], right[:])
}

func (digestHasher) Blank() Digest {
	return Digest{}
}

// TreeHasher returns the node hasher used by all commitment trees in the
// system.
func TreeHasher() mtree.NodeHasher[Digest] {
	return digestHasher{}
}

// EmptyRoot returns the root of an empty commitment tree of the given depth.
func EmptyRoot(depth int) Digest {
	return mtree.EmptyRoot[Digest](digestHasher{}, depth)
}
