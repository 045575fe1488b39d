// nullifier.go - nullifier keys and nullifier derivation.
package rm

// NullifierKey is the secret that authorizes consuming a resource. The
// resource record carries only the key's commitment.
type NullifierKey struct {
	key Digest
}

// GenerateNullifierKey draws a fresh random nullifier key.
func GenerateNullifierKey() (NullifierKey, error) {
	d, err := RandomDigest()
	if err != nil {
		return NullifierKey{}, err
	}
	return NullifierKey{key: d}, nil
}

// NullifierKeyFromDigest wraps an existing secret, for deterministic tests
// and key storage.
func NullifierKeyFromDigest(d Digest) NullifierKey {
	return NullifierKey{key: d}
}

// Commitment derives the public commitment embedded in resources consumable
// with this key.
func (k NullifierKey) Commitment() Digest {
	return hashDigest([]byte{DomainNullifierKey}, k.key[:])
}

// Bytes returns the secret key material.
func (k NullifierKey) Bytes() Digest {
	return k.key
}

// Nullifier derives the resource's nullifier under the given key. It fails
// with a KeyMismatchError when the key does not open the resource's
// NkCommitment.
func (r *Resource) Nullifier(key NullifierKey) (Digest, error) {
	nkc := key.Commitment()
	if nkc != r.NkCommitment {
		return Digest{}, &KeyMismatchError{Expected: r.NkCommitment, Got: nkc}
	}
	cm := r.Commitment()
	return hashDigest([]byte{DomainNullifier}, key.key[:], cm[:]), nil
}
