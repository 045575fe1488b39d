// machine.go - the ledger state machine.
//
// Apply is strictly two-pass: a read-only verify pass over the whole
// transaction, then a commit pass that mutates state. No partially applied
// transaction is ever observable, and a failed transaction leaves the
// machine exactly as it was.
package rm

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"resourcemachine/internal/mtree"
)

// Machine holds the ledger state: the set of historical tree roots, the
// revealed nullifiers, the ordered commitments and the commitment tree they
// build. One mutex guards the whole of Apply, so applies serialize and
// readers never see an intermediate state.
type Machine struct {
	mu sync.Mutex

	verifier          Verifier
	complianceProgram Digest
	log               zerolog.Logger

	issuers       map[string]struct{}
	roots         map[Digest]struct{}
	nullifiers    map[Digest]struct{}
	commitmentSet map[Digest]struct{}
	commitments   []Digest
	tree          *mtree.Tree[Digest]
}

// NewMachine creates an empty ledger. The roots set starts with the
// empty-tree root, so compliance instances for ephemeral consumption pass
// the known-root rule from the first transaction on.
func NewMachine(verifier Verifier, complianceProgram Digest, log zerolog.Logger) *Machine {
	m := &Machine{
		verifier:          verifier,
		complianceProgram: complianceProgram,
		log:               log,
		issuers:           make(map[string]struct{}),
		roots:             make(map[Digest]struct{}),
		nullifiers:        make(map[Digest]struct{}),
		commitmentSet:     make(map[Digest]struct{}),
		tree:              mtree.New[Digest](digestHasher{}, TreeDepth, nil),
	}
	m.roots[m.tree.Root()] = struct{}{}
	return m
}

// AuthorizeIssuer registers a public key whose issuance declarations the
// ledger accepts. Issuers are wiring, like the verifier; snapshots do not
// carry them.
func (m *Machine) AuthorizeIssuer(pub []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuers[string(pub)] = struct{}{}
}

// Apply verifies the transaction against current state and, only if every
// check passes, commits it. The returned error identifies the first failed
// check; the state is untouched on any error.
func (m *Machine) Apply(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.verify(tx); err != nil {
		m.log.Debug().Err(err).Msg("transaction rejected")
		return err
	}
	m.commit(tx)
	root := m.tree.Root()
	m.log.Info().
		Hex("root", root[:8]).
		Int("commitments", len(m.commitments)).
		Msg("transaction applied")
	return nil
}

// verify is the read-only pass. Caller holds the lock.
func (m *Machine) verify(tx *Transaction) error {
	if len(tx.Actions) == 0 {
		return &MalformedInstanceError{Reason: "transaction has no actions"}
	}
	for i := range tx.Actions {
		if err := tx.Actions[i].checkConsistency(); err != nil {
			return err
		}
	}

	// Stateful checks run sequentially so the first offending digest is
	// deterministic. Pending sets catch duplicates within the transaction
	// itself, before any state is written.
	pendingNullifiers := make(map[Digest]struct{})
	pendingCommitments := make(map[Digest]struct{})
	for i := range tx.Actions {
		for j := range tx.Actions[i].ComplianceUnits {
			inst := &tx.Actions[i].ComplianceUnits[j].Instance
			if _, ok := m.roots[inst.Root]; !ok {
				return &UnknownRootError{Root: inst.Root}
			}
			if _, ok := m.nullifiers[inst.Nullifier]; ok {
				return &RevealedNullifierError{Nullifier: inst.Nullifier}
			}
			if _, ok := pendingNullifiers[inst.Nullifier]; ok {
				return &RevealedNullifierError{Nullifier: inst.Nullifier}
			}
			pendingNullifiers[inst.Nullifier] = struct{}{}
			if _, ok := m.commitmentSet[inst.Commitment]; ok {
				return &DuplicateCommitmentError{Commitment: inst.Commitment}
			}
			if _, ok := pendingCommitments[inst.Commitment]; ok {
				return &DuplicateCommitmentError{Commitment: inst.Commitment}
			}
			pendingCommitments[inst.Commitment] = struct{}{}
		}
	}

	if tx.Issuance != nil {
		if err := m.verifyIssuance(tx); err != nil {
			return err
		}
	}
	agg, err := tx.AggregateDelta()
	if err != nil {
		return err
	}
	if err := VerifyDelta(tx.DeltaProof, agg, tx.DeltaMessage()); err != nil {
		return err
	}

	// Proof verification dominates, so units and logics verify in
	// parallel. Nothing is decided until every result is in.
	var g errgroup.Group
	for i := range tx.Actions {
		a := &tx.Actions[i]
		for j := range a.ComplianceUnits {
			cu := &a.ComplianceUnits[j]
			g.Go(func() error {
				instBytes, err := EncodeComplianceInstance(&cu.Instance)
				if err != nil {
					return &MalformedInstanceError{Tag: cu.Instance.Commitment, Reason: err.Error()}
				}
				if err := m.verifier.Verify(m.complianceProgram, cu.Proof, instBytes); err != nil {
					return &InvalidProofError{Tag: cu.Instance.Commitment, Reason: err}
				}
				return nil
			})
		}
		for j := range a.LogicProofs {
			lp := &a.LogicProofs[j]
			g.Go(func() error {
				instBytes, err := EncodeLogicInstance(&lp.Instance)
				if err != nil {
					return &MalformedInstanceError{Tag: lp.Instance.Tag, Reason: err.Error()}
				}
				if err := m.verifier.Verify(lp.VerifyingKey, lp.Proof, instBytes); err != nil {
					return &InvalidProofError{Tag: lp.Instance.Tag, Reason: err}
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// commit is the mutating pass. Caller holds the lock and verify passed.
func (m *Machine) commit(tx *Transaction) {
	for i := range tx.Actions {
		for j := range tx.Actions[i].ComplianceUnits {
			inst := &tx.Actions[i].ComplianceUnits[j].Instance
			m.nullifiers[inst.Nullifier] = struct{}{}
			m.commitmentSet[inst.Commitment] = struct{}{}
			m.commitments = append(m.commitments, inst.Commitment)
		}
	}
	m.tree = mtree.New[Digest](digestHasher{}, TreeDepth, m.commitments)
	m.roots[m.tree.Root()] = struct{}{}
}

// Root returns the current commitment tree root.
func (m *Machine) Root() Digest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Root()
}

// KnowsRoot reports whether the root is current or historical.
func (m *Machine) KnowsRoot(root Digest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.roots[root]
	return ok
}

// IsSpent reports whether the nullifier has been revealed.
func (m *Machine) IsSpent(nullifier Digest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nullifiers[nullifier]
	return ok
}

// Commitments returns the ordered commitments.
func (m *Machine) Commitments() []Digest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Digest, len(m.commitments))
	copy(out, m.commitments)
	return out
}

// Path returns the membership path for the commitment at the given index
// in the current tree.
func (m *Machine) Path(index int) (*mtree.Path[Digest], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Path(index)
}

// Snapshot captures the machine state for persistence. Roots and
// nullifiers are sorted so the snapshot is deterministic.
type Snapshot struct {
	Roots       []Digest `cbor:"1,keyasint"`
	Nullifiers  []Digest `cbor:"2,keyasint"`
	Commitments []Digest `cbor:"3,keyasint"`
}

// Snapshot captures the current state.
func (m *Machine) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Snapshot{
		Roots:       sortedDigests(m.roots),
		Nullifiers:  sortedDigests(m.nullifiers),
		Commitments: make([]Digest, len(m.commitments)),
	}
	copy(s.Commitments, m.commitments)
	return s
}

// RestoreMachine rebuilds a machine from a snapshot. The tree is recomputed
// from the ordered commitments; the empty-tree root is re-seeded in case the
// snapshot predates it.
func RestoreMachine(verifier Verifier, complianceProgram Digest, log zerolog.Logger, s *Snapshot) *Machine {
	m := NewMachine(verifier, complianceProgram, log)
	for _, r := range s.Roots {
		m.roots[r] = struct{}{}
	}
	for _, n := range s.Nullifiers {
		m.nullifiers[n] = struct{}{}
	}
	m.commitments = make([]Digest, len(s.Commitments))
	copy(m.commitments, s.Commitments)
	for _, c := range m.commitments {
		m.commitmentSet[c] = struct{}{}
	}
	m.tree = mtree.New[Digest](digestHasher{}, TreeDepth, m.commitments)
	m.roots[m.tree.Root()] = struct{}{}
	return m
}

func sortedDigests(set map[Digest]struct{}) []Digest {
	out := make([]Digest, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
