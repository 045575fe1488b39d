// authorization.go - ECDSA authorization of issuance declarations.
//
// The signed message is a digest over the declaration and the transaction's
// instance digests, so an authorization cannot be replayed onto a different
// transaction.
package rm

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/secp256k1/ecdsa"
)

// AuthKey is an issuance authorization keypair.
type AuthKey struct {
	sk *ecdsa.PrivateKey
}

// GenerateAuthKey draws a fresh authorization keypair.
func GenerateAuthKey(r io.Reader) (*AuthKey, error) {
	sk, err := ecdsa.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	return &AuthKey{sk: sk}, nil
}

// PublicBytes returns the authorizer's public key encoding, as carried in
// issuance declarations.
func (k *AuthKey) PublicBytes() []byte {
	return k.sk.PublicKey.Bytes()
}

// issuanceMessage derives the signed message for a declaration bound to the
// given transaction content.
func issuanceMessage(kind Digest, quantity uint64, burn bool, deltaMsg []byte) []byte {
	var qty [8]byte
	binary.BigEndian.PutUint64(qty[:], quantity)
	b := []byte{0}
	if burn {
		b[0] = 1
	}
	body := make([]byte, 0, len(kind)+len(qty)+1+len(deltaMsg))
	body = append(body, kind[:]...)
	body = append(body, qty[:]...)
	body = append(body, b[0])
	body = append(body, deltaMsg...)
	d := BytesDigest(DomainAuthorization, body)
	return d[:]
}

// SignIssuance fills in the authorizer and signature of a declaration for
// the given transaction. Actions and issuance fields must be final.
func (k *AuthKey) SignIssuance(tx *Transaction) error {
	if tx.Issuance == nil {
		return fmt.Errorf("rm: transaction carries no issuance declaration")
	}
	iss := tx.Issuance
	msg := issuanceMessage(iss.Kind, iss.Quantity, iss.Burn, tx.DeltaMessage())
	sig, err := k.sk.Sign(msg, sha256.New())
	if err != nil {
		return err
	}
	iss.Authorizer = k.PublicBytes()
	iss.Signature = sig
	return nil
}

// verifyIssuance checks that the declaration's authorizer is a registered
// issuer and that its signature covers the transaction content. Caller holds
// the lock.
func (m *Machine) verifyIssuance(tx *Transaction) error {
	iss := tx.Issuance
	if _, ok := m.issuers[string(iss.Authorizer)]; !ok {
		return &MalformedInstanceError{Tag: iss.Kind,
			Reason: "issuance authorizer is not a registered issuer"}
	}
	var pk ecdsa.PublicKey
	if _, err := pk.SetBytes(iss.Authorizer); err != nil {
		return &MalformedInstanceError{Tag: iss.Kind,
			Reason: fmt.Sprintf("decode issuance authorizer: %v", err)}
	}
	msg := issuanceMessage(iss.Kind, iss.Quantity, iss.Burn, tx.DeltaMessage())
	ok, err := pk.Verify(iss.Signature, msg, sha256.New())
	if err != nil {
		return &MalformedInstanceError{Tag: iss.Kind,
			Reason: fmt.Sprintf("verify issuance signature: %v", err)}
	}
	if !ok {
		return &MalformedInstanceError{Tag: iss.Kind,
			Reason: "issuance signature does not verify"}
	}
	return nil
}
