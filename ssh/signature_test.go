package ssh

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func marshalRSAPublicKeyBlob(t *testing.T, pub *rsa.PublicKey) []byte {
	t.Helper()
	w := newBuffer(0)
	require.NoError(t, w.WriteString([]byte(hostKeyAlgoSSHRSA)))
	require.NoError(t, w.WriteMPInt(big.NewInt(int64(pub.E))))
	require.NoError(t, w.WriteMPInt(pub.N))
	return w.Bytes()
}

func marshalSignatureBlob(t *testing.T, algo string, sig []byte) []byte {
	t.Helper()
	w := newBuffer(0)
	require.NoError(t, w.WriteString([]byte(algo)))
	require.NoError(t, w.WriteString(sig))
	return w.Bytes()
}

func TestVerifySignatureRSASHA256Accepts(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("exchange hash goes here")
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	pubBlob := marshalRSAPublicKeyBlob(t, &key.PublicKey)
	sigBlob := marshalSignatureBlob(t, hostKeyAlgoRSASHA256, sig)

	require.NoError(t, verifySignature(hostKeyAlgoRSASHA256, pubBlob, data, sigBlob))
}

func TestVerifySignatureSSHRSASHA1Accepts(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("exchange hash goes here")
	digest := sha1.Sum(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, digest[:])
	require.NoError(t, err)

	pubBlob := marshalRSAPublicKeyBlob(t, &key.PublicKey)
	sigBlob := marshalSignatureBlob(t, hostKeyAlgoSSHRSA, sig)

	require.NoError(t, verifySignature(hostKeyAlgoSSHRSA, pubBlob, data, sigBlob))
}

func TestVerifySignatureRejectsTamperedData(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("exchange hash goes here")
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	pubBlob := marshalRSAPublicKeyBlob(t, &key.PublicKey)
	sigBlob := marshalSignatureBlob(t, hostKeyAlgoRSASHA256, sig)

	err = verifySignature(hostKeyAlgoRSASHA256, pubBlob, []byte("different hash input"), sigBlob)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifySignatureRejectsAlgorithmMismatch(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("exchange hash goes here")
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	pubBlob := marshalRSAPublicKeyBlob(t, &key.PublicKey)
	// Signature blob claims ssh-rsa but negotiated algorithm is rsa-sha2-256.
	sigBlob := marshalSignatureBlob(t, hostKeyAlgoSSHRSA, sig)

	err = verifySignature(hostKeyAlgoRSASHA256, pubBlob, data, sigBlob)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}
