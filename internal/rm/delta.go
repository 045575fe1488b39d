// delta.go - kind-weighted balance commitments and the delta proof.
//
// Each compliance unit contributes a homomorphic commitment to the
// quantities it moves: the consumed quantity weighted by its kind point,
// minus the created quantity weighted by its kind point, plus a random
// blinding multiple of the base point. Summing over a transaction cancels
// every balanced kind, leaving a pure blinding commitment. The transaction
// proves knowledge of the aggregate blinding with a Schnorr signature, which
// is exactly the statement that the transaction is balanced.
package rm

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/secp256k1"
	"github.com/consensys/gnark-crypto/ecc/secp256k1/fp"
	"github.com/consensys/gnark-crypto/ecc/secp256k1/fr"
)

// DeltaBytesLen is the raw affine encoding size of a delta commitment.
const DeltaBytesLen = 64

// DeltaProofLen is the encoding size of a delta proof: raw nonce point
// followed by a 32-byte scalar.
const DeltaProofLen = DeltaBytesLen + 32

// Delta is a point on secp256k1 committing to kind-weighted quantities.
type Delta struct {
	point secp256k1.G1Affine
}

// ZeroDelta returns the identity commitment.
func ZeroDelta() Delta {
	return Delta{}
}

// Add returns the sum of two delta commitments.
func (d Delta) Add(o Delta) Delta {
	var out Delta
	out.point.Add(&d.point, &o.point)
	return out
}

// Sub returns the difference of two delta commitments.
func (d Delta) Sub(o Delta) Delta {
	var out Delta
	out.point.Sub(&d.point, &o.point)
	return out
}

// Equal reports whether two commitments are the same point.
func (d Delta) Equal(o Delta) bool {
	return d.point.Equal(&o.point)
}

// Bytes returns the raw affine point encoding.
func (d Delta) Bytes() []byte {
	b := d.point.RawBytes()
	return b[:]
}

// DeltaFromBytes parses a raw delta commitment.
func DeltaFromBytes(b []byte) (Delta, error) {
	var d Delta
	if len(b) != DeltaBytesLen {
		return d, fmt.Errorf("rm: delta must be %d bytes, got %d", DeltaBytesLen, len(b))
	}
	if _, err := d.point.SetBytes(b); err != nil {
		return d, fmt.Errorf("rm: decode delta point: %w", err)
	}
	return d, nil
}

// KindPoint maps a resource kind to a curve point with unknown discrete
// logarithm, by try-and-increment on the x coordinate. Unknown dlog is what
// prevents forging balance across kinds.
func KindPoint(kind Digest) Delta {
	x := new(big.Int).SetBytes(kind[:])
	one := big.NewInt(1)
	for {
		if p, ok := pointFromX(x); ok {
			return Delta{point: *p}
		}
		x.Add(x, one)
	}
}

// pointFromX lifts an x coordinate onto y^2 = x^3 + 7, taking the even-y
// root. The cofactor is one, so every curve point is in the group.
func pointFromX(x *big.Int) (*secp256k1.G1Affine, bool) {
	var xe, y2, y fp.Element
	xe.SetBigInt(x)
	y2.Square(&xe).Mul(&y2, &xe)
	var b fp.Element
	b.SetUint64(7)
	y2.Add(&y2, &b)
	if y.Sqrt(&y2) == nil {
		return nil, false
	}
	if y.BigInt(new(big.Int)).Bit(0) == 1 {
		y.Neg(&y)
	}
	return &secp256k1.G1Affine{X: xe, Y: y}, true
}

// RandomBlinding draws a fresh blinding scalar.
func RandomBlinding() (fr.Element, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return fr.Element{}, err
	}
	return e, nil
}

// UnitDelta commits to the quantities one compliance unit moves.
func UnitDelta(consumed, created *Resource, blinding fr.Element) Delta {
	consumedKind := KindPoint(consumed.Kind())
	createdKind := KindPoint(created.Kind())

	var out, term Delta
	out.point.ScalarMultiplication(&consumedKind.point, new(big.Int).SetUint64(consumed.Quantity))
	term.point.ScalarMultiplication(&createdKind.point, new(big.Int).SetUint64(created.Quantity))
	out.point.Sub(&out.point, &term.point)
	term.point.ScalarMultiplicationBase(blinding.BigInt(new(big.Int)))
	out.point.Add(&out.point, &term.point)
	return out
}

// IssuanceDelta is the unblinded correction a declared net issuance or burn
// applies to the aggregate. Issued quantity sits on the created side and
// enters the aggregate negatively, so issuance adds it back; burnt quantity
// the other way around.
func IssuanceDelta(kind Digest, quantity uint64, burn bool) Delta {
	kp := KindPoint(kind)
	var out Delta
	out.point.ScalarMultiplication(&kp.point, new(big.Int).SetUint64(quantity))
	if burn {
		out.point.Neg(&out.point)
	}
	return out
}

// deltaChallenge derives the Schnorr challenge, bound to the nonce point,
// the aggregate commitment and the transaction's instance digests.
func deltaChallenge(noncePoint, delta Delta, msg []byte) fr.Element {
	h := BytesDigest(DomainDeltaProof, append(append(noncePoint.Bytes(), delta.Bytes()...), msg...))
	var e fr.Element
	e.SetBytes(h[:])
	return e
}

// SignDelta proves that delta is a pure blinding commitment, i.e. that the
// signer knows totalBlinding with delta = [totalBlinding]G. The message
// binds the proof to the transaction content.
func SignDelta(totalBlinding fr.Element, delta Delta, msg []byte) ([]byte, error) {
	k, err := RandomBlinding()
	if err != nil {
		return nil, err
	}
	var noncePoint Delta
	noncePoint.point.ScalarMultiplicationBase(k.BigInt(new(big.Int)))

	e := deltaChallenge(noncePoint, delta, msg)
	var s fr.Element
	s.Mul(&e, &totalBlinding).Add(&s, &k)

	sBytes := s.Bytes()
	proof := make([]byte, 0, DeltaProofLen)
	proof = append(proof, noncePoint.Bytes()...)
	proof = append(proof, sBytes[:]...)
	return proof, nil
}

// VerifyDelta checks a delta proof against the aggregate commitment.
func VerifyDelta(proof []byte, delta Delta, msg []byte) error {
	if len(proof) != DeltaProofLen {
		return fmt.Errorf("%w: proof must be %d bytes, got %d", ErrUnbalancedDelta, DeltaProofLen, len(proof))
	}
	noncePoint, err := DeltaFromBytes(proof[:DeltaBytesLen])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnbalancedDelta, err)
	}
	var s fr.Element
	s.SetBytes(proof[DeltaBytesLen:])

	e := deltaChallenge(noncePoint, delta, msg)

	var lhs, rhs secp256k1.G1Affine
	lhs.ScalarMultiplicationBase(s.BigInt(new(big.Int)))
	rhs.ScalarMultiplication(&delta.point, e.BigInt(new(big.Int)))
	rhs.Add(&rhs, &noncePoint.point)
	if !lhs.Equal(&rhs) {
		return ErrUnbalancedDelta
	}
	return nil
}
