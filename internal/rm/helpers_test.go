package rm_test

import (
	"crypto/rand"
	"io"
	"testing"

	secpfr "github.com/consensys/gnark-crypto/ecc/secp256k1/fr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"resourcemachine/internal/proving"
	"resourcemachine/internal/rm"
)

var testLabel = rm.NewDigest([]byte("test-asset"))

func newTestMachine() *rm.Machine {
	return rm.NewMachine(proving.Insecure{}, proving.InsecureComplianceProgram, zerolog.Nop())
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func mustBlinding(t *testing.T) secpfr.Element {
	t.Helper()
	b, err := rm.RandomBlinding()
	require.NoError(t, err)
	return b
}

func cryptoRand(t *testing.T) io.Reader {
	t.Helper()
	return rand.Reader
}

func randDigest(t *testing.T) rm.Digest {
	t.Helper()
	d, err := rm.RandomDigest()
	require.NoError(t, err)
	return d
}

// newResource builds a resource governed by the insecure padding logic.
func newResource(t *testing.T, key rm.NullifierKey, quantity uint64, ephemeral bool) rm.Resource {
	t.Helper()
	return rm.Resource{
		LogicRef:     proving.InsecureLogicProgram,
		LabelRef:     testLabel,
		ValueRef:     randDigest(t),
		Quantity:     quantity,
		Ephemeral:    ephemeral,
		Nonce:        randDigest(t),
		NkCommitment: key.Commitment(),
		RandSeed:     randDigest(t),
	}
}

// creationWitness pairs a fresh resource with an ephemeral consumption of
// the same kind and quantity, so the unit balances without issuance.
func creationWitness(t *testing.T, key rm.NullifierKey, created rm.Resource) *proving.ComplianceWitness {
	t.Helper()
	blinding, err := rm.RandomBlinding()
	require.NoError(t, err)
	return &proving.ComplianceWitness{
		Consumed:     newResource(t, key, created.Quantity, true),
		NullifierKey: key,
		Created:      created,
		Blinding:     blinding,
	}
}

// consumptionWitness consumes a committed resource from the machine's tree,
// creating an ephemeral counterpart to balance.
func consumptionWitness(t *testing.T, m *rm.Machine, key rm.NullifierKey, consumed rm.Resource) *proving.ComplianceWitness {
	t.Helper()
	cm := consumed.Commitment()
	index := -1
	for i, c := range m.Commitments() {
		if c == cm {
			index = i
			break
		}
	}
	require.GreaterOrEqual(t, index, 0, "resource not committed")
	path, err := m.Path(index)
	require.NoError(t, err)
	blinding, err := rm.RandomBlinding()
	require.NoError(t, err)
	return &proving.ComplianceWitness{
		Consumed:     consumed,
		NullifierKey: key,
		Created:      newResource(t, key, consumed.Quantity, true),
		Path:         path,
		Blinding:     blinding,
	}
}

// multiActionTx assembles one action per witness group, with a single delta
// proof over the whole transaction.
func multiActionTx(t *testing.T, groups ...[]*proving.ComplianceWitness) *rm.Transaction {
	t.Helper()
	b := proving.Insecure{}
	var total secpfr.Element
	var actions []rm.Action
	for _, ws := range groups {
		var units []rm.ComplianceUnit
		for _, w := range ws {
			cu, err := b.ComplianceUnit(w)
			require.NoError(t, err)
			units = append(units, *cu)
			total.Add(&total, &w.Blinding)
		}
		action := rm.Action{ComplianceUnits: units}
		root := action.TagTreeRoot()
		for i, w := range ws {
			inst := &units[i].Instance
			consumedLP, err := b.LogicProof(w.Consumed.LogicRef, &rm.LogicInstance{
				Tag: inst.Nullifier, IsConsumed: true, Root: root,
			})
			require.NoError(t, err)
			createdLP, err := b.LogicProof(w.Created.LogicRef, &rm.LogicInstance{
				Tag: inst.Commitment, IsConsumed: false, Root: root,
			})
			require.NoError(t, err)
			action.LogicProofs = append(action.LogicProofs, *consumedLP, *createdLP)
		}
		actions = append(actions, action)
	}
	tx := &rm.Transaction{Actions: actions}
	agg, err := tx.AggregateDelta()
	require.NoError(t, err)
	proof, err := rm.SignDelta(total, agg, tx.DeltaMessage())
	require.NoError(t, err)
	tx.DeltaProof = proof
	return tx
}
