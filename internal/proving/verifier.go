// verifier.go - proof verification behind the ledger's verifier seam.
package proving

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"resourcemachine/internal/rm"
)

// ProgramVerifier checks proofs of a single program.
type ProgramVerifier interface {
	Verify(proof, instance []byte) error
}

// Registry dispatches verification by program ID. It implements
// rm.Verifier; registration happens at wiring time, lookups are concurrent.
type Registry struct {
	mu       sync.RWMutex
	programs map[rm.Digest]ProgramVerifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[rm.Digest]ProgramVerifier)}
}

// Register binds a program ID to its verifier.
func (r *Registry) Register(id rm.Digest, v ProgramVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = v
}

// Verify dispatches to the registered program.
func (r *Registry) Verify(programID rm.Digest, proof, instance []byte) error {
	r.mu.RLock()
	v, ok := r.programs[programID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("proving: no verifier registered for program %x", programID[:8])
	}
	return v.Verify(proof, instance)
}

// ProgramID derives a program's identity from its verifying key bytes.
func ProgramID(vk groth16.VerifyingKey) (rm.Digest, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return rm.Digest{}, fmt.Errorf("proving: serialize verifying key: %w", err)
	}
	return rm.BytesDigest(rm.DomainProgram, buf.Bytes()), nil
}

// Groth16ComplianceVerifier checks compliance proofs against a verifying
// key. The public witness is rebuilt from the decoded instance, so a proof
// only verifies for the exact instance the ledger is looking at.
type Groth16ComplianceVerifier struct {
	VK groth16.VerifyingKey
}

func (v *Groth16ComplianceVerifier) Verify(proof, instance []byte) error {
	ci, err := rm.DecodeComplianceInstance(instance)
	if err != nil {
		return err
	}
	a := &ComplianceCircuit{
		Nullifier:        ci.Nullifier.BigInt(),
		Commitment:       ci.Commitment.BigInt(),
		ConsumedLogicRef: ci.ConsumedLogicRef.BigInt(),
		CreatedLogicRef:  ci.CreatedLogicRef.BigInt(),
		Root:             ci.Root.BigInt(),
	}
	w, err := frontend.NewWitness(a, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("proving: public witness creation failed: %w", err)
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return fmt.Errorf("proving: proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(p, v.VK, w); err != nil {
		return fmt.Errorf("proving: proof verification failed: %w", err)
	}
	return nil
}

// Groth16LogicVerifier checks padding logic proofs. The single public input
// is the instance binding digest.
type Groth16LogicVerifier struct {
	VK groth16.VerifyingKey
}

func (v *Groth16LogicVerifier) Verify(proof, instance []byte) error {
	li, err := rm.DecodeLogicInstance(instance)
	if err != nil {
		return err
	}
	a := &PaddingLogicCircuit{InstanceDigest: li.Binding().BigInt()}
	w, err := frontend.NewWitness(a, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("proving: public witness creation failed: %w", err)
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return fmt.Errorf("proving: proof unmarshaling failed: %w", err)
	}
	if err := groth16.Verify(p, v.VK, w); err != nil {
		return fmt.Errorf("proving: proof verification failed: %w", err)
	}
	return nil
}
