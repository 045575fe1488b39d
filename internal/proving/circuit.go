// circuit.go - the compliance statement and the padding resource logic as
// gnark circuits over BN254.
//
// The in-circuit MiMC gadget and the native gnark-crypto MiMC agree element
// for element, so every hash below recomputes exactly what the ledger
// derives natively. Domain tags are absorbed as leading constants with the
// same values the native side writes.
package proving

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"resourcemachine/internal/rm"
)

// ComplianceCircuit proves that one consumption/creation pair was derived
// honestly: the nullifier opens a committed resource under a key matching
// its key commitment, the created commitment is well formed, and the
// consumed resource is either in the tree behind Root or ephemeral, in
// which case Root is pinned to the canonical empty-tree root.
//
// The unit's balance commitment lives on secp256k1 and is bound to the
// instance by the transaction-level delta proof instead of in-circuit.
type ComplianceCircuit struct {
	Nullifier        frontend.Variable `gnark:",public"`
	Commitment       frontend.Variable `gnark:",public"`
	ConsumedLogicRef frontend.Variable `gnark:",public"`
	CreatedLogicRef  frontend.Variable `gnark:",public"`
	Root             frontend.Variable `gnark:",public"`

	NullifierKey      frontend.Variable
	ConsumedLabelRef  frontend.Variable
	ConsumedValueRef  frontend.Variable
	ConsumedQuantity  frontend.Variable
	ConsumedEphemeral frontend.Variable
	ConsumedNonce     frontend.Variable
	ConsumedRandSeed  frontend.Variable

	CreatedLabelRef     frontend.Variable
	CreatedValueRef     frontend.Variable
	CreatedQuantity     frontend.Variable
	CreatedEphemeral    frontend.Variable
	CreatedNonce        frontend.Variable
	CreatedNkCommitment frontend.Variable
	CreatedRandSeed     frontend.Variable

	PathSiblings [rm.TreeDepth]frontend.Variable
	PathOnRight  [rm.TreeDepth]frontend.Variable
}

func (c *ComplianceCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hash := func(vals ...frontend.Variable) frontend.Variable {
		h.Reset()
		h.Write(vals...)
		return h.Sum()
	}

	api.AssertIsBoolean(c.ConsumedEphemeral)
	api.AssertIsBoolean(c.CreatedEphemeral)
	api.ToBinary(c.ConsumedQuantity, 64)
	api.ToBinary(c.CreatedQuantity, 64)

	nkc := hash(int(rm.DomainNullifierKey), c.NullifierKey)

	consumedCm := hash(int(rm.DomainCommitment),
		c.ConsumedLogicRef, c.ConsumedLabelRef, c.ConsumedValueRef,
		c.ConsumedQuantity, c.ConsumedEphemeral,
		c.ConsumedNonce, nkc, c.ConsumedRandSeed)

	nullifier := hash(int(rm.DomainNullifier), c.NullifierKey, consumedCm)
	api.AssertIsEqual(nullifier, c.Nullifier)

	createdCm := hash(int(rm.DomainCommitment),
		c.CreatedLogicRef, c.CreatedLabelRef, c.CreatedValueRef,
		c.CreatedQuantity, c.CreatedEphemeral,
		c.CreatedNonce, c.CreatedNkCommitment, c.CreatedRandSeed)
	api.AssertIsEqual(createdCm, c.Commitment)

	node := consumedCm
	for height := 0; height < rm.TreeDepth; height++ {
		api.AssertIsBoolean(c.PathOnRight[height])
		left := api.Select(c.PathOnRight[height], c.PathSiblings[height], node)
		right := api.Select(c.PathOnRight[height], node, c.PathSiblings[height])
		node = hash(int(rm.DomainTreeNode)<<8|height, left, right)
	}

	emptyRoot := rm.EmptyRoot(rm.TreeDepth)
	root := api.Select(c.ConsumedEphemeral, emptyRoot.BigInt(), node)
	api.AssertIsEqual(root, c.Root)
	return nil
}

// PaddingLogicCircuit is the always-true resource logic. It attests nothing
// beyond the shape of its instance; applications substitute their own logic
// circuits with the same public binding.
type PaddingLogicCircuit struct {
	InstanceDigest frontend.Variable `gnark:",public"`

	Tag        frontend.Variable
	IsConsumed frontend.Variable
	Root       frontend.Variable
}

func (c *PaddingLogicCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	api.AssertIsBoolean(c.IsConsumed)
	h.Write(int(rm.DomainLogicInstance), c.Tag, c.IsConsumed, c.Root)
	api.AssertIsEqual(h.Sum(), c.InstanceDigest)
	return nil
}
