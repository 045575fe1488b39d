// encryption.go - ECIES for resource payloads.
//
// Sender and receiver derive a shared secp256k1 point by Diffie-Hellman, a
// MiMC digest of its coordinates keys a ChaCha20-Poly1305 AEAD. The
// resulting ciphertext travels opaquely in a logic instance's Cipher field;
// the ledger never looks inside.
package rm

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/secp256k1"
	"github.com/consensys/gnark-crypto/ecc/secp256k1/fr"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptionNonceLen is the AEAD nonce size.
const EncryptionNonceLen = chacha20poly1305.NonceSize

// EncryptionKey is a secp256k1 keypair for payload encryption.
type EncryptionKey struct {
	sk fr.Element
	pk secp256k1.G1Affine
}

// GenerateEncryptionKey draws a fresh encryption keypair.
func GenerateEncryptionKey() (*EncryptionKey, error) {
	var sk fr.Element
	if _, err := sk.SetRandom(); err != nil {
		return nil, err
	}
	var pk secp256k1.G1Affine
	pk.ScalarMultiplicationBase(sk.BigInt(new(big.Int)))
	return &EncryptionKey{sk: sk, pk: pk}, nil
}

// PublicBytes returns the raw affine public key encoding.
func (k *EncryptionKey) PublicBytes() []byte {
	b := k.pk.RawBytes()
	return b[:]
}

// sharedKey derives the 32-byte AEAD key from a DH point.
func sharedKey(point *secp256k1.G1Affine) []byte {
	x := point.X.Bytes()
	y := point.Y.Bytes()
	d := BytesDigest(DomainEncryptionKey, append(x[:], y[:]...))
	return d[:]
}

// Encrypt seals plaintext for the recipient public key. The nonce must be
// EncryptionNonceLen bytes and unique per (sender, recipient) pair.
func (k *EncryptionKey) Encrypt(plaintext, recipientPk, nonce []byte) ([]byte, error) {
	var rpk secp256k1.G1Affine
	if _, err := rpk.SetBytes(recipientPk); err != nil {
		return nil, fmt.Errorf("rm: decode recipient key: %w", err)
	}
	if len(nonce) != EncryptionNonceLen {
		return nil, fmt.Errorf("rm: nonce must be %d bytes, got %d", EncryptionNonceLen, len(nonce))
	}
	var shared secp256k1.G1Affine
	shared.ScalarMultiplication(&rpk, k.sk.BigInt(new(big.Int)))
	aead, err := chacha20poly1305.New(sharedKey(&shared))
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext sealed for this key by the sender.
func (k *EncryptionKey) Decrypt(ciphertext, senderPk, nonce []byte) ([]byte, error) {
	var spk secp256k1.G1Affine
	if _, err := spk.SetBytes(senderPk); err != nil {
		return nil, fmt.Errorf("rm: decode sender key: %w", err)
	}
	if len(nonce) != EncryptionNonceLen {
		return nil, fmt.Errorf("rm: nonce must be %d bytes, got %d", EncryptionNonceLen, len(nonce))
	}
	var shared secp256k1.G1Affine
	shared.ScalarMultiplication(&spk, k.sk.BigInt(new(big.Int)))
	aead, err := chacha20poly1305.New(sharedKey(&shared))
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("rm: open ciphertext: %w", err)
	}
	return pt, nil
}
