package rm_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"resourcemachine/internal/rm"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)
	receiver, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)

	nonce := make([]byte, rm.EncryptionNonceLen)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	plaintext := []byte("resource payload for the receiver")
	ct, err := sender.Encrypt(plaintext, receiver.PublicBytes(), nonce)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)

	pt, err := receiver.Decrypt(ct, sender.PublicBytes(), nonce)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	sender, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)
	receiver, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)
	eavesdropper, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)

	nonce := make([]byte, rm.EncryptionNonceLen)
	ct, err := sender.Encrypt([]byte("secret"), receiver.PublicBytes(), nonce)
	require.NoError(t, err)

	_, err = eavesdropper.Decrypt(ct, sender.PublicBytes(), nonce)
	require.Error(t, err)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	sender, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)
	receiver, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)

	nonce := make([]byte, rm.EncryptionNonceLen)
	ct, err := sender.Encrypt([]byte("secret"), receiver.PublicBytes(), nonce)
	require.NoError(t, err)
	ct[0] ^= 0xff

	_, err = receiver.Decrypt(ct, sender.PublicBytes(), nonce)
	require.Error(t, err)
}

func TestEncryptRejectsBadInputs(t *testing.T) {
	sender, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)
	receiver, err := rm.GenerateEncryptionKey()
	require.NoError(t, err)

	_, err = sender.Encrypt([]byte("x"), receiver.PublicBytes(), []byte{1, 2})
	require.Error(t, err)
	_, err = sender.Encrypt([]byte("x"), []byte{0xde, 0xad}, make([]byte, rm.EncryptionNonceLen))
	require.Error(t, err)
}
