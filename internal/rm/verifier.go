// verifier.go - the proof backend seam.
package rm

// Verifier checks proofs produced outside the ledger. programID names the
// statement: the compliance program for compliance units, the verifying key
// digest for resource logics. The instance bytes are the CBOR encoding of
// the corresponding instance struct.
//
// Implementations must be safe for concurrent use; the ledger verifies the
// units of a transaction in parallel.
type Verifier interface {
	Verify(programID Digest, proof, instance []byte) error
}
