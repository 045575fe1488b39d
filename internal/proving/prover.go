// prover.go - witness assembly and Groth16 proof generation.
package proving

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	secpfr "github.com/consensys/gnark-crypto/ecc/secp256k1/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"resourcemachine/internal/mtree"
	"resourcemachine/internal/rm"
)

// ComplianceWitness is the private material behind one compliance unit.
// Path must authenticate the consumed resource's commitment and may be nil
// only when the consumed resource is ephemeral.
type ComplianceWitness struct {
	Consumed     rm.Resource
	NullifierKey rm.NullifierKey
	Created      rm.Resource
	Path         *mtree.Path[rm.Digest]
	Blinding     secpfr.Element
}

// Instance derives the public instance the witness supports.
func (w *ComplianceWitness) Instance() (*rm.ComplianceInstance, error) {
	nf, err := w.Consumed.Nullifier(w.NullifierKey)
	if err != nil {
		return nil, err
	}
	var root rm.Digest
	switch {
	case w.Consumed.Ephemeral:
		root = rm.EmptyRoot(rm.TreeDepth)
	case w.Path == nil:
		return nil, fmt.Errorf("proving: non-ephemeral consumption needs a membership path")
	default:
		root = w.Path.Root(w.Consumed.Commitment())
	}
	delta := rm.UnitDelta(&w.Consumed, &w.Created, w.Blinding)
	return &rm.ComplianceInstance{
		Nullifier:        nf,
		Commitment:       w.Created.Commitment(),
		ConsumedLogicRef: w.Consumed.LogicRef,
		CreatedLogicRef:  w.Created.LogicRef,
		Root:             root,
		Delta:            delta.Bytes(),
	}, nil
}

// assignment builds the full circuit assignment for proving.
func (w *ComplianceWitness) assignment() *ComplianceCircuit {
	a := &ComplianceCircuit{
		ConsumedLogicRef: w.Consumed.LogicRef.BigInt(),
		CreatedLogicRef:  w.Created.LogicRef.BigInt(),

		NullifierKey:      w.NullifierKey.Bytes().BigInt(),
		ConsumedLabelRef:  w.Consumed.LabelRef.BigInt(),
		ConsumedValueRef:  w.Consumed.ValueRef.BigInt(),
		ConsumedQuantity:  w.Consumed.Quantity,
		ConsumedEphemeral: boolVar(w.Consumed.Ephemeral),
		ConsumedNonce:     w.Consumed.Nonce.BigInt(),
		ConsumedRandSeed:  w.Consumed.RandSeed.BigInt(),

		CreatedLabelRef:     w.Created.LabelRef.BigInt(),
		CreatedValueRef:     w.Created.ValueRef.BigInt(),
		CreatedQuantity:     w.Created.Quantity,
		CreatedEphemeral:    boolVar(w.Created.Ephemeral),
		CreatedNonce:        w.Created.Nonce.BigInt(),
		CreatedNkCommitment: w.Created.NkCommitment.BigInt(),
		CreatedRandSeed:     w.Created.RandSeed.BigInt(),
	}
	for i := 0; i < rm.TreeDepth; i++ {
		a.PathSiblings[i] = 0
		a.PathOnRight[i] = 0
	}
	if w.Path != nil {
		for i, e := range w.Path.Elements() {
			a.PathSiblings[i] = e.Sibling.BigInt()
			a.PathOnRight[i] = boolVar(e.OnRight)
		}
	}
	return a
}

func boolVar(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CompileCompliance compiles the compliance circuit to R1CS.
func CompileCompliance() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &ComplianceCircuit{})
}

// CompilePaddingLogic compiles the padding logic circuit to R1CS.
func CompilePaddingLogic() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &PaddingLogicCircuit{})
}

// Groth16Prover generates compliance units and padding logic proofs against
// one pair of circuit setups.
type Groth16Prover struct {
	complianceCCS constraint.ConstraintSystem
	compliancePK  groth16.ProvingKey
	complianceVK  groth16.VerifyingKey

	logicCCS constraint.ConstraintSystem
	logicPK  groth16.ProvingKey
	logicVK  groth16.VerifyingKey
}

// NewGroth16Prover compiles both circuits and runs fresh setups. Key
// generation dominates startup; daemons cache keys with SetupOrLoadKeys and
// NewGroth16ProverWithKeys instead.
func NewGroth16Prover() (*Groth16Prover, error) {
	complianceCCS, err := CompileCompliance()
	if err != nil {
		return nil, fmt.Errorf("proving: compile compliance circuit: %w", err)
	}
	compliancePK, complianceVK, err := groth16.Setup(complianceCCS)
	if err != nil {
		return nil, fmt.Errorf("proving: compliance setup: %w", err)
	}
	logicCCS, err := CompilePaddingLogic()
	if err != nil {
		return nil, fmt.Errorf("proving: compile padding logic circuit: %w", err)
	}
	logicPK, logicVK, err := groth16.Setup(logicCCS)
	if err != nil {
		return nil, fmt.Errorf("proving: padding logic setup: %w", err)
	}
	return &Groth16Prover{
		complianceCCS: complianceCCS,
		compliancePK:  compliancePK,
		complianceVK:  complianceVK,
		logicCCS:      logicCCS,
		logicPK:       logicPK,
		logicVK:       logicVK,
	}, nil
}

// NewGroth16ProverWithKeys wires a prover from already-compiled systems and
// keys.
func NewGroth16ProverWithKeys(
	complianceCCS constraint.ConstraintSystem, compliancePK groth16.ProvingKey, complianceVK groth16.VerifyingKey,
	logicCCS constraint.ConstraintSystem, logicPK groth16.ProvingKey, logicVK groth16.VerifyingKey,
) *Groth16Prover {
	return &Groth16Prover{
		complianceCCS: complianceCCS,
		compliancePK:  compliancePK,
		complianceVK:  complianceVK,
		logicCCS:      logicCCS,
		logicPK:       logicPK,
		logicVK:       logicVK,
	}
}

// ComplianceProgramID identifies the compliance statement the prover's
// proofs verify under.
func (p *Groth16Prover) ComplianceProgramID() (rm.Digest, error) {
	return ProgramID(p.complianceVK)
}

// LogicProgramID identifies the padding logic, used as the logic ref of
// resources governed by it.
func (p *Groth16Prover) LogicProgramID() (rm.Digest, error) {
	return ProgramID(p.logicVK)
}

// ProveCompliance generates a compliance unit for the witness.
func (p *Groth16Prover) ProveCompliance(w *ComplianceWitness) (*rm.ComplianceUnit, error) {
	inst, err := w.Instance()
	if err != nil {
		return nil, err
	}
	a := w.assignment()
	a.Nullifier = inst.Nullifier.BigInt()
	a.Commitment = inst.Commitment.BigInt()
	a.Root = inst.Root.BigInt()

	fw, err := frontend.NewWitness(a, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("proving: witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(p.complianceCCS, p.compliancePK, fw)
	if err != nil {
		return nil, fmt.Errorf("proving: proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proving: proof marshaling failed: %w", err)
	}
	return &rm.ComplianceUnit{Proof: buf.Bytes(), Instance: *inst}, nil
}

// ProveLogic generates a padding logic proof for the instance.
func (p *Groth16Prover) ProveLogic(li *rm.LogicInstance) (*rm.LogicProof, error) {
	a := &PaddingLogicCircuit{
		InstanceDigest: li.Binding().BigInt(),
		Tag:            li.Tag.BigInt(),
		IsConsumed:     boolVar(li.IsConsumed),
		Root:           li.Root.BigInt(),
	}
	fw, err := frontend.NewWitness(a, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("proving: witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(p.logicCCS, p.logicPK, fw)
	if err != nil {
		return nil, fmt.Errorf("proving: proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proving: proof marshaling failed: %w", err)
	}
	vkID, err := ProgramID(p.logicVK)
	if err != nil {
		return nil, err
	}
	return &rm.LogicProof{VerifyingKey: vkID, Proof: buf.Bytes(), Instance: *li}, nil
}

// Registry builds the verifier registry matching this prover's programs.
func (p *Groth16Prover) Registry() (*Registry, error) {
	complianceID, err := ProgramID(p.complianceVK)
	if err != nil {
		return nil, err
	}
	logicID, err := ProgramID(p.logicVK)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	r.Register(complianceID, &Groth16ComplianceVerifier{VK: p.complianceVK})
	r.Register(logicID, &Groth16LogicVerifier{VK: p.logicVK})
	return r, nil
}
