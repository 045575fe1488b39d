// main.go - end-to-end resource machine scenario.
//
// Runs a small ledger lifecycle against the insecure development backend:
// issue a resource, transfer it, then show the rejections the ledger
// enforces (double spend, unbalanced delta).
//
// Usage:
//
//	go run main.go
package main

import (
	"crypto/rand"
	"os"

	"github.com/rs/zerolog"

	"resourcemachine/internal/proving"
	"resourcemachine/internal/rm"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := runScenario(log); err != nil {
		log.Fatal().Err(err).Msg("scenario failed")
	}
	log.Info().Msg("scenario complete")
}

func runScenario(log zerolog.Logger) error {
	backend := proving.Insecure{}
	machine := rm.NewMachine(backend, proving.InsecureComplianceProgram, log)

	alice, err := rm.GenerateNullifierKey()
	if err != nil {
		return err
	}
	bob, err := rm.GenerateNullifierKey()
	if err != nil {
		return err
	}
	issuer, err := rm.GenerateAuthKey(rand.Reader)
	if err != nil {
		return err
	}
	machine.AuthorizeIssuer(issuer.PublicBytes())

	// Issue 100 units of an asset to alice. The consumed side is an
	// ephemeral zero-quantity resource; the declared issuance balances the
	// created quantity.
	asset := rm.NewDigest([]byte("demo-asset"))
	aliceNote, err := freshResource(asset, alice, 100)
	if err != nil {
		return err
	}
	issueWitness, err := creationWitness(alice, aliceNote)
	if err != nil {
		return err
	}
	issueTx, err := backend.Transaction(
		[]*proving.ComplianceWitness{issueWitness},
		&rm.Issuance{Kind: aliceNote.Kind(), Quantity: aliceNote.Quantity},
		issuer,
	)
	if err != nil {
		return err
	}
	if err := machine.Apply(issueTx); err != nil {
		return err
	}
	log.Info().Msg("issued 100 units to alice")

	// Transfer: consume alice's note, create bob's of equal quantity.
	bobNote, err := freshResource(asset, bob, 100)
	if err != nil {
		return err
	}
	transferWitness, err := consumeWitness(machine, alice, aliceNote, bobNote)
	if err != nil {
		return err
	}
	transferTx, err := backend.Transaction([]*proving.ComplianceWitness{transferWitness}, nil, nil)
	if err != nil {
		return err
	}
	if err := machine.Apply(transferTx); err != nil {
		return err
	}
	log.Info().Msg("alice transferred the note to bob")

	// A second spend of the same note must be rejected.
	bobNote2, err := freshResource(asset, bob, 100)
	if err != nil {
		return err
	}
	doubleSpendWitness, err := consumeWitness(machine, alice, aliceNote, bobNote2)
	if err != nil {
		return err
	}
	doubleSpendTx, err := backend.Transaction([]*proving.ComplianceWitness{doubleSpendWitness}, nil, nil)
	if err != nil {
		return err
	}
	if err := machine.Apply(doubleSpendTx); err == nil {
		return errDoubleSpendAccepted
	} else {
		log.Info().Str("reason", err.Error()).Msg("double spend rejected")
	}

	// An unbalanced transfer (printing units without a declared issuance)
	// must be rejected by the delta proof.
	inflated, err := freshResource(asset, bob, 250)
	if err != nil {
		return err
	}
	inflationWitness, err := consumeWitness(machine, bob, bobNote, inflated)
	if err != nil {
		return err
	}
	inflationTx, err := backend.Transaction([]*proving.ComplianceWitness{inflationWitness}, nil, nil)
	if err != nil {
		return err
	}
	if err := machine.Apply(inflationTx); err == nil {
		return errInflationAccepted
	} else {
		log.Info().Str("reason", err.Error()).Msg("unbalanced transfer rejected")
	}

	root := machine.Root()
	log.Info().
		Hex("root", root[:8]).
		Int("commitments", len(machine.Commitments())).
		Msg("final state")
	return nil
}

// freshResource builds a resource of the given kind label governed by the
// insecure padding logic.
func freshResource(label rm.Digest, owner rm.NullifierKey, quantity uint64) (rm.Resource, error) {
	nonce, err := rm.RandomDigest()
	if err != nil {
		return rm.Resource{}, err
	}
	seed, err := rm.RandomDigest()
	if err != nil {
		return rm.Resource{}, err
	}
	return rm.Resource{
		LogicRef:     proving.InsecureLogicProgram,
		LabelRef:     label,
		Quantity:     quantity,
		Nonce:        nonce,
		NkCommitment: owner.Commitment(),
		RandSeed:     seed,
	}, nil
}

// creationWitness pairs the created resource with an ephemeral
// zero-quantity consumption, leaving the created amount to the issuance
// declaration.
func creationWitness(key rm.NullifierKey, created rm.Resource) (*proving.ComplianceWitness, error) {
	ephemeral, err := freshResource(created.LabelRef, key, 0)
	if err != nil {
		return nil, err
	}
	ephemeral.Ephemeral = true
	blinding, err := rm.RandomBlinding()
	if err != nil {
		return nil, err
	}
	return &proving.ComplianceWitness{
		Consumed:     ephemeral,
		NullifierKey: key,
		Created:      created,
		Blinding:     blinding,
	}, nil
}

// consumeWitness consumes a committed resource and creates the given one.
func consumeWitness(machine *rm.Machine, key rm.NullifierKey, consumed, created rm.Resource) (*proving.ComplianceWitness, error) {
	cm := consumed.Commitment()
	index := -1
	for i, c := range machine.Commitments() {
		if c == cm {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, errResourceNotCommitted
	}
	path, err := machine.Path(index)
	if err != nil {
		return nil, err
	}
	blinding, err := rm.RandomBlinding()
	if err != nil {
		return nil, err
	}
	return &proving.ComplianceWitness{
		Consumed:     consumed,
		NullifierKey: key,
		Created:      created,
		Path:         path,
		Blinding:     blinding,
	}, nil
}

type scenarioError string

func (e scenarioError) Error() string { return string(e) }

const (
	errDoubleSpendAccepted  = scenarioError("double spend was accepted")
	errInflationAccepted    = scenarioError("unbalanced transfer was accepted")
	errResourceNotCommitted = scenarioError("resource not committed")
)
