package proving

import (
	"testing"

	"github.com/stretchr/testify/require"

	"resourcemachine/internal/rm"
)

func TestInsecureRoundTrip(t *testing.T) {
	b := Insecure{}
	w := testWitness(t)
	cu, err := b.ComplianceUnit(w)
	require.NoError(t, err)

	instBytes, err := rm.EncodeComplianceInstance(&cu.Instance)
	require.NoError(t, err)
	require.NoError(t, b.Verify(InsecureComplianceProgram, cu.Proof, instBytes))
}

func TestInsecureRejectsTamperedInstance(t *testing.T) {
	b := Insecure{}
	w := testWitness(t)
	cu, err := b.ComplianceUnit(w)
	require.NoError(t, err)

	tampered := cu.Instance
	tampered.Root = testDigest(t, 50)
	instBytes, err := rm.EncodeComplianceInstance(&tampered)
	require.NoError(t, err)
	require.Error(t, b.Verify(InsecureComplianceProgram, cu.Proof, instBytes))
}

func TestInsecureRejectsWrongProgram(t *testing.T) {
	b := Insecure{}
	w := testWitness(t)
	cu, err := b.ComplianceUnit(w)
	require.NoError(t, err)

	instBytes, err := rm.EncodeComplianceInstance(&cu.Instance)
	require.NoError(t, err)
	require.Error(t, b.Verify(InsecureLogicProgram, cu.Proof, instBytes))
}

func TestInsecureLogicProof(t *testing.T) {
	b := Insecure{}
	li := &rm.LogicInstance{Tag: testDigest(t, 30), IsConsumed: false, Root: testDigest(t, 31)}
	lp, err := b.LogicProof(InsecureLogicProgram, li)
	require.NoError(t, err)
	require.Equal(t, InsecureLogicProgram, lp.VerifyingKey)

	instBytes, err := rm.EncodeLogicInstance(&lp.Instance)
	require.NoError(t, err)
	require.NoError(t, b.Verify(lp.VerifyingKey, lp.Proof, instBytes))
}

func TestWitnessInstanceNeedsPath(t *testing.T) {
	w := testWitness(t)
	w.Path = nil
	_, err := w.Instance()
	require.Error(t, err)
}
