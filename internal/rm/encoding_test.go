package rm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"resourcemachine/internal/proving"
	"resourcemachine/internal/rm"
)

func TestTransactionWireRoundTrip(t *testing.T) {
	b := proving.Insecure{}
	key, err := rm.GenerateNullifierKey()
	require.NoError(t, err)
	tx, err := b.Transaction([]*proving.ComplianceWitness{
		creationWitness(t, key, newResource(t, key, 10, false)),
	}, nil, nil)
	require.NoError(t, err)
	tx.Actions[0].LogicProofs[0].Instance.Cipher = []byte{1, 2, 3}
	tx.Actions[0].LogicProofs[0].Instance.AppData = []rm.ExpirableBlob{
		{Blob: []byte("payload"), DeletionCriterion: rm.DeleteAfterApply},
	}

	wire, err := tx.MarshalBinary()
	require.NoError(t, err)

	var got rm.Transaction
	require.NoError(t, got.UnmarshalBinary(wire))
	require.Equal(t, tx.Actions, got.Actions)
	require.Equal(t, tx.DeltaProof, got.DeltaProof)

	// Canonical encoding: identical content encodes to identical bytes.
	again, err := got.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, wire, again)
}

func TestTransactionWireRejectsGarbage(t *testing.T) {
	var tx rm.Transaction
	require.Error(t, tx.UnmarshalBinary([]byte{0xff, 0x00, 0x13}))
}

func TestComplianceInstanceRoundTrip(t *testing.T) {
	ci := &rm.ComplianceInstance{
		Nullifier:        randDigest(t),
		Commitment:       randDigest(t),
		ConsumedLogicRef: randDigest(t),
		CreatedLogicRef:  randDigest(t),
		Root:             randDigest(t),
		Delta:            []byte{1, 2, 3},
	}
	b, err := rm.EncodeComplianceInstance(ci)
	require.NoError(t, err)
	got, err := rm.DecodeComplianceInstance(b)
	require.NoError(t, err)
	require.Equal(t, ci, got)
	require.Equal(t, ci.Digest(), got.Digest())
}

func TestInstanceDigestBindsFields(t *testing.T) {
	ci := rm.ComplianceInstance{
		Nullifier: randDigest(t),
		Root:      randDigest(t),
		Delta:     make([]byte, rm.DeltaBytesLen),
	}
	other := ci
	other.Delta = append([]byte(nil), ci.Delta...)
	other.Delta[0] ^= 1
	require.NotEqual(t, ci.Digest(), other.Digest())

	other = ci
	other.Root = randDigest(t)
	require.NotEqual(t, ci.Digest(), other.Digest())
}

func TestLogicInstanceBinding(t *testing.T) {
	li := rm.LogicInstance{Tag: randDigest(t), IsConsumed: true, Root: randDigest(t)}
	same := li
	same.Cipher = []byte("opaque payload, not part of the statement")
	require.Equal(t, li.Binding(), same.Binding())

	flipped := li
	flipped.IsConsumed = false
	require.NotEqual(t, li.Binding(), flipped.Binding())
}
