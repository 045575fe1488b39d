// resource.go - the resource record and its derived identities.
package rm

import "encoding/binary"

// TreeDepth is the fixed depth of the global commitment tree.
const TreeDepth = 32

// Resource is the unit of state. A resource never changes once created; the
// ledger only ever learns its commitment on creation and its nullifier on
// consumption.
type Resource struct {
	// LogicRef identifies the predicate governing the resource's use.
	LogicRef Digest `cbor:"1,keyasint"`
	// LabelRef and ValueRef carry application data by reference.
	LabelRef Digest `cbor:"2,keyasint"`
	ValueRef Digest `cbor:"3,keyasint"`
	// Quantity is the fungible amount, weighted by Kind in deltas.
	Quantity uint64 `cbor:"4,keyasint"`
	// Ephemeral resources balance creation-only and consumption-only
	// intents. Consuming one needs no tree membership; the compliance
	// instance carries the empty-tree root instead. Creating one still
	// appends its commitment like any other resource.
	Ephemeral bool `cbor:"5,keyasint"`
	// Nonce makes otherwise identical resources distinct.
	Nonce Digest `cbor:"6,keyasint"`
	// NkCommitment commits to the nullifier key without revealing it.
	NkCommitment Digest `cbor:"7,keyasint"`
	// RandSeed blinds the commitment.
	RandSeed Digest `cbor:"8,keyasint"`
}

// Commitment derives the resource commitment, the leaf appended to the
// commitment tree when the resource is created.
func (r *Resource) Commitment() Digest {
	var qty [8]byte
	binary.BigEndian.PutUint64(qty[:], r.Quantity)
	eph := []byte{0}
	if r.Ephemeral {
		eph[0] = 1
	}
	return hashDigest([]byte{DomainCommitment},
		r.LogicRef[:], r.LabelRef[:], r.ValueRef[:],
		qty[:], eph,
		r.Nonce[:], r.NkCommitment[:], r.RandSeed[:])
}

// Kind identifies the fungibility class of the resource. Two resources of
// the same kind net against each other in transaction deltas.
func (r *Resource) Kind() Digest {
	return hashDigest([]byte{DomainKind}, r.LogicRef[:], r.LabelRef[:])
}
