// insecure.go - the development proof backend.
//
// Proofs are deterministic MACs over (program ID, instance bytes). The
// backend attests whatever its prover produced, so it proves nothing;
// instance derivation still runs the real native computations, which is
// what ledger tests exercise. Production wiring uses the Groth16 registry.
package proving

import (
	"crypto/subtle"

	"resourcemachine/internal/rm"
)

// InsecureComplianceProgram is the program ID the insecure backend uses for
// compliance units.
var InsecureComplianceProgram = rm.BytesDigest(rm.DomainProgram, []byte("insecure-compliance"))

// InsecureLogicProgram is the logic ref of resources governed by the
// insecure padding logic.
var InsecureLogicProgram = rm.BytesDigest(rm.DomainProgram, []byte("insecure-padding-logic"))

// Insecure is the development backend. It implements rm.Verifier for every
// program ID at once.
type Insecure struct{}

func (Insecure) mac(programID rm.Digest, instance []byte) rm.Digest {
	return rm.BytesDigest(rm.DomainProgram, append(programID[:], instance...))
}

// Prove emits the MAC standing in for a proof.
func (b Insecure) Prove(programID rm.Digest, instance []byte) []byte {
	d := b.mac(programID, instance)
	return d[:]
}

// Verify recomputes the MAC.
func (b Insecure) Verify(programID rm.Digest, proof, instance []byte) error {
	d := b.mac(programID, instance)
	if subtle.ConstantTimeCompare(proof, d[:]) != 1 {
		return errProofMismatch
	}
	return nil
}

var errProofMismatch = proofMismatchError{}

type proofMismatchError struct{}

func (proofMismatchError) Error() string { return "proving: proof does not match instance" }

// ComplianceUnit derives the instance from the witness and attests it.
func (b Insecure) ComplianceUnit(w *ComplianceWitness) (*rm.ComplianceUnit, error) {
	inst, err := w.Instance()
	if err != nil {
		return nil, err
	}
	instBytes, err := rm.EncodeComplianceInstance(inst)
	if err != nil {
		return nil, err
	}
	return &rm.ComplianceUnit{
		Proof:    b.Prove(InsecureComplianceProgram, instBytes),
		Instance: *inst,
	}, nil
}

// LogicProof attests a logic instance under the given logic ref.
func (b Insecure) LogicProof(verifyingKey rm.Digest, li *rm.LogicInstance) (*rm.LogicProof, error) {
	instBytes, err := rm.EncodeLogicInstance(li)
	if err != nil {
		return nil, err
	}
	return &rm.LogicProof{
		VerifyingKey: verifyingKey,
		Proof:        b.Prove(verifyingKey, instBytes),
		Instance:     *li,
	}, nil
}
