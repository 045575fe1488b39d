// action.go - actions, transactions and their structural checks.
package rm

import (
	"fmt"

	"resourcemachine/internal/mtree"
)

// ActionTreeDepth is the depth of the per-action tag tree. An action moves
// at most 2^(ActionTreeDepth-1) resource pairs.
const ActionTreeDepth = 4

// Action groups the compliance units that share one set of resource logics.
// Its tag tree commits to the ordered tags the action touches; every logic
// proof attests against that root, so each logic sees the whole action.
type Action struct {
	ComplianceUnits []ComplianceUnit `cbor:"1,keyasint"`
	LogicProofs     []LogicProof     `cbor:"2,keyasint"`
}

// Tags returns the action's tags in canonical order: per unit, the
// nullifier then the commitment.
func (a *Action) Tags() []Digest {
	tags := make([]Digest, 0, 2*len(a.ComplianceUnits))
	for i := range a.ComplianceUnits {
		inst := &a.ComplianceUnits[i].Instance
		tags = append(tags, inst.Nullifier, inst.Commitment)
	}
	return tags
}

// TagTreeRoot derives the root of the action's tag tree.
func (a *Action) TagTreeRoot() Digest {
	return TagTreeRoot(a.Tags())
}

// TagTreeRoot builds the fixed-depth tag tree over ordered tags.
func TagTreeRoot(tags []Digest) Digest {
	return mtree.New[Digest](digestHasher{}, ActionTreeDepth, tags).Root()
}

// checkConsistency verifies the action's structure: tag count within the
// tag-tree capacity, every tag covered by exactly one logic proof whose
// verifying key matches the logic ref the compliance instance declares, the
// consumed flag agreeing with the tag's side, and every logic instance
// rooted at the action's tag tree.
func (a *Action) checkConsistency() error {
	if len(a.ComplianceUnits) == 0 {
		return &MalformedInstanceError{Reason: "action has no compliance units"}
	}
	if 2*len(a.ComplianceUnits) > 1<<ActionTreeDepth {
		return &MalformedInstanceError{Reason: fmt.Sprintf(
			"action has %d compliance units, tag tree holds %d tags",
			len(a.ComplianceUnits), 1<<ActionTreeDepth)}
	}

	proofByTag := make(map[Digest]*LogicProof, len(a.LogicProofs))
	for i := range a.LogicProofs {
		lp := &a.LogicProofs[i]
		if _, dup := proofByTag[lp.Instance.Tag]; dup {
			return &MalformedInstanceError{Tag: lp.Instance.Tag,
				Reason: "duplicate logic proof for tag"}
		}
		proofByTag[lp.Instance.Tag] = lp
	}

	root := a.TagTreeRoot()
	for i := range a.ComplianceUnits {
		inst := &a.ComplianceUnits[i].Instance
		for _, side := range []struct {
			tag      Digest
			logicRef Digest
			consumed bool
		}{
			{inst.Nullifier, inst.ConsumedLogicRef, true},
			{inst.Commitment, inst.CreatedLogicRef, false},
		} {
			lp, ok := proofByTag[side.tag]
			if !ok {
				return &MalformedInstanceError{Tag: side.tag,
					Reason: "no logic proof covers tag"}
			}
			if lp.VerifyingKey != side.logicRef {
				return &MalformedInstanceError{Tag: side.tag,
					Reason: "logic proof verifying key does not match declared logic ref"}
			}
			if lp.Instance.IsConsumed != side.consumed {
				return &MalformedInstanceError{Tag: side.tag,
					Reason: "logic instance consumed flag does not match tag side"}
			}
			if lp.Instance.Root != root {
				return &MalformedInstanceError{Tag: side.tag,
					Reason: "logic instance root does not match action tag tree"}
			}
		}
	}
	return nil
}

// Issuance declares an authorized net creation or burn for one kind.
// Quantity weighted by the kind is excluded from the balance check; the
// declaration itself must carry a valid authorization signature.
type Issuance struct {
	Kind       Digest `cbor:"1,keyasint"`
	Quantity   uint64 `cbor:"2,keyasint"`
	Burn       bool   `cbor:"3,keyasint"`
	Authorizer []byte `cbor:"4,keyasint"`
	Signature  []byte `cbor:"5,keyasint"`
}

// Transaction is an atomic state transition proposal.
type Transaction struct {
	Actions    []Action  `cbor:"1,keyasint"`
	DeltaProof []byte    `cbor:"2,keyasint"`
	Issuance   *Issuance `cbor:"3,keyasint"`
}

// DeltaMessage is the message the delta proof signs: the ordered instance
// digests of the whole transaction.
func (tx *Transaction) DeltaMessage() []byte {
	msg := make([]byte, 0, 32*4)
	for i := range tx.Actions {
		for j := range tx.Actions[i].ComplianceUnits {
			d := tx.Actions[i].ComplianceUnits[j].Instance.Digest()
			msg = append(msg, d[:]...)
		}
	}
	return msg
}

// AggregateDelta sums the unit deltas, corrected by the declared issuance.
// A balanced transaction's aggregate is a pure blinding commitment.
func (tx *Transaction) AggregateDelta() (Delta, error) {
	agg := ZeroDelta()
	for i := range tx.Actions {
		for j := range tx.Actions[i].ComplianceUnits {
			inst := &tx.Actions[i].ComplianceUnits[j].Instance
			d, err := DeltaFromBytes(inst.Delta)
			if err != nil {
				return Delta{}, &MalformedInstanceError{Tag: inst.Commitment,
					Reason: err.Error()}
			}
			agg = agg.Add(d)
		}
	}
	if tx.Issuance != nil {
		agg = agg.Add(IssuanceDelta(tx.Issuance.Kind, tx.Issuance.Quantity, tx.Issuance.Burn))
	}
	return agg, nil
}
