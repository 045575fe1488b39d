// compliance.go - the public instances proofs are checked against.
package rm

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// ComplianceInstance is the public input of one compliance proof. A unit
// always pairs one consumption with one creation; intents that only create
// consume an ephemeral resource instead, and vice versa.
type ComplianceInstance struct {
	// Nullifier of the consumed resource.
	Nullifier Digest `cbor:"1,keyasint"`
	// Commitment of the created resource.
	Commitment Digest `cbor:"2,keyasint"`
	// Logic refs the proof attests for each side. Action-level checks tie
	// these to the logic proofs covering the same tags.
	ConsumedLogicRef Digest `cbor:"3,keyasint"`
	CreatedLogicRef  Digest `cbor:"4,keyasint"`
	// Root the consumed resource's membership path was checked against. For
	// ephemeral consumption this is the canonical empty-tree root.
	Root Digest `cbor:"5,keyasint"`
	// Delta is the unit's compressed balance commitment.
	Delta []byte `cbor:"6,keyasint"`
}

// Digest binds every field of the instance into one value, used in the
// delta-proof message.
func (ci *ComplianceInstance) Digest() Digest {
	h := mimc.NewMiMC()
	_, _ = h.Write([]byte{DomainInstance})
	_, _ = h.Write(ci.Nullifier[:])
	_, _ = h.Write(ci.Commitment[:])
	_, _ = h.Write(ci.ConsumedLogicRef[:])
	_, _ = h.Write(ci.CreatedLogicRef[:])
	_, _ = h.Write(ci.Root[:])
	for b := ci.Delta; len(b) > 0; {
		n := len(b)
		if n > 16 {
			n = 16
		}
		_, _ = h.Write(b[:n])
		b = b[n:]
	}
	return NewDigest(h.Sum(nil))
}

// ComplianceUnit is a compliance proof with its instance.
type ComplianceUnit struct {
	Proof    []byte             `cbor:"1,keyasint"`
	Instance ComplianceInstance `cbor:"2,keyasint"`
}

// ExpirableBlob is application data attached to a logic instance, tagged
// with the criterion under which storage may drop it.
type ExpirableBlob struct {
	Blob              []byte `cbor:"1,keyasint"`
	DeletionCriterion uint32 `cbor:"2,keyasint"`
}

// Deletion criteria for expirable blobs.
const (
	DeleteNever      uint32 = 0
	DeleteAfterApply uint32 = 1
)

// LogicInstance is the public input of one resource-logic proof. Tag is the
// nullifier when the resource is consumed, the commitment when created.
type LogicInstance struct {
	Tag        Digest `cbor:"1,keyasint"`
	IsConsumed bool   `cbor:"2,keyasint"`
	// Root of the action's tag tree; every logic sees the same action.
	Root    Digest          `cbor:"3,keyasint"`
	Cipher  []byte          `cbor:"4,keyasint"`
	AppData []ExpirableBlob `cbor:"5,keyasint"`
}

// Binding digests the fields a resource logic attests in-circuit. Cipher
// and app data stay outside: they are opaque payload, not statement.
func (li *LogicInstance) Binding() Digest {
	consumed := []byte{0}
	if li.IsConsumed {
		consumed[0] = 1
	}
	return hashDigest([]byte{DomainLogicInstance}, li.Tag[:], consumed, li.Root[:])
}

// LogicProof is a resource-logic proof with its instance. VerifyingKey
// doubles as the logic ref of the resource the proof covers.
type LogicProof struct {
	VerifyingKey Digest        `cbor:"1,keyasint"`
	Proof        []byte        `cbor:"2,keyasint"`
	Instance     LogicInstance `cbor:"3,keyasint"`
}
