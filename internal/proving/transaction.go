// transaction.go - full transaction assembly from compliance witnesses.
//
// Assembly is backend-independent: units and logic proofs come from the
// backend's prove functions, everything else is derived. Logic proofs are
// generated for both tags of every unit under the logic refs the resources
// declare, all rooted at the action's tag tree. The aggregate blinding signs
// the delta proof last, once the issuance declaration is in place.
package proving

import (
	secpfr "github.com/consensys/gnark-crypto/ecc/secp256k1/fr"

	"resourcemachine/internal/rm"
)

type proveUnitFunc func(*ComplianceWitness) (*rm.ComplianceUnit, error)
type proveLogicFunc func(vk rm.Digest, li *rm.LogicInstance) (*rm.LogicProof, error)

func assembleTransaction(
	witnesses []*ComplianceWitness,
	issuance *rm.Issuance,
	auth *rm.AuthKey,
	proveUnit proveUnitFunc,
	proveLogic proveLogicFunc,
) (*rm.Transaction, error) {
	units := make([]rm.ComplianceUnit, 0, len(witnesses))
	var totalBlinding secpfr.Element
	for _, w := range witnesses {
		cu, err := proveUnit(w)
		if err != nil {
			return nil, err
		}
		units = append(units, *cu)
		totalBlinding.Add(&totalBlinding, &w.Blinding)
	}

	action := rm.Action{ComplianceUnits: units}
	root := action.TagTreeRoot()
	for i, w := range witnesses {
		inst := &units[i].Instance
		consumedLP, err := proveLogic(w.Consumed.LogicRef, &rm.LogicInstance{
			Tag:        inst.Nullifier,
			IsConsumed: true,
			Root:       root,
		})
		if err != nil {
			return nil, err
		}
		createdLP, err := proveLogic(w.Created.LogicRef, &rm.LogicInstance{
			Tag:        inst.Commitment,
			IsConsumed: false,
			Root:       root,
		})
		if err != nil {
			return nil, err
		}
		action.LogicProofs = append(action.LogicProofs, *consumedLP, *createdLP)
	}

	tx := &rm.Transaction{
		Actions:  []rm.Action{action},
		Issuance: issuance,
	}
	if issuance != nil && auth != nil {
		if err := auth.SignIssuance(tx); err != nil {
			return nil, err
		}
	}
	agg, err := tx.AggregateDelta()
	if err != nil {
		return nil, err
	}
	proof, err := rm.SignDelta(totalBlinding, agg, tx.DeltaMessage())
	if err != nil {
		return nil, err
	}
	tx.DeltaProof = proof
	return tx, nil
}

// Transaction assembles a one-action transaction from the witnesses using
// the insecure backend.
func (b Insecure) Transaction(witnesses []*ComplianceWitness, issuance *rm.Issuance, auth *rm.AuthKey) (*rm.Transaction, error) {
	return assembleTransaction(witnesses, issuance, auth, b.ComplianceUnit, b.LogicProof)
}

// Transaction assembles a one-action transaction from the witnesses with
// Groth16 proofs. Resources must declare the prover's padding logic as
// their logic ref; other logic refs need their own provers.
func (p *Groth16Prover) Transaction(witnesses []*ComplianceWitness, issuance *rm.Issuance, auth *rm.AuthKey) (*rm.Transaction, error) {
	return assembleTransaction(witnesses, issuance, auth, p.ProveCompliance,
		func(_ rm.Digest, li *rm.LogicInstance) (*rm.LogicProof, error) {
			return p.ProveLogic(li)
		})
}
