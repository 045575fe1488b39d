// errors.go - the rejection taxonomy of the ledger.
//
// Every error carries the offending digest so callers can report precisely
// what a transaction tripped over. None of these are retryable: a rejected
// transaction stays rejected against the same state.
package rm

import (
	"errors"
	"fmt"
)

// ErrUnbalancedDelta indicates that the transaction's delta proof failed,
// meaning consumed and created quantities do not net to the declared
// issuance per kind.
var ErrUnbalancedDelta = errors.New("rm: transaction delta does not balance")

// InvalidProofError indicates that a compliance or logic proof failed
// verification.
type InvalidProofError struct {
	Tag    Digest
	Reason error
}

func (e *InvalidProofError) Error() string {
	return fmt.Sprintf("rm: invalid proof for tag %x: %v", e.Tag[:8], e.Reason)
}

func (e *InvalidProofError) Unwrap() error { return e.Reason }

// UnknownRootError indicates that a compliance instance references a
// commitment-tree root the ledger has never held.
type UnknownRootError struct {
	Root Digest
}

func (e *UnknownRootError) Error() string {
	return fmt.Sprintf("rm: unknown commitment tree root %x", e.Root[:8])
}

// RevealedNullifierError indicates a double spend: the nullifier was already
// revealed, either by ledger state or earlier in the same transaction.
type RevealedNullifierError struct {
	Nullifier Digest
}

func (e *RevealedNullifierError) Error() string {
	return fmt.Sprintf("rm: nullifier %x already revealed", e.Nullifier[:8])
}

// DuplicateCommitmentError indicates that a created commitment already
// exists, either in ledger state or earlier in the same transaction.
type DuplicateCommitmentError struct {
	Commitment Digest
}

func (e *DuplicateCommitmentError) Error() string {
	return fmt.Sprintf("rm: commitment %x already exists", e.Commitment[:8])
}

// KeyMismatchError indicates a nullifier key that does not open the
// resource's key commitment.
type KeyMismatchError struct {
	Expected Digest
	Got      Digest
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("rm: nullifier key commitment mismatch: resource carries %x, key derives %x",
		e.Expected[:8], e.Got[:8])
}

// MalformedInstanceError indicates a structurally invalid transaction: a tag
// without a matching logic proof, an inconsistent instance root, a decode
// failure, or a malformed issuance declaration.
type MalformedInstanceError struct {
	Tag    Digest
	Reason string
}

func (e *MalformedInstanceError) Error() string {
	return fmt.Sprintf("rm: malformed instance for tag %x: %s", e.Tag[:8], e.Reason)
}
