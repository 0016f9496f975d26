package ssh

import (
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyMaterialLengthAndDeterminism(t *testing.T) {
	K := big.NewInt(99999)
	H := []byte{1, 2, 3, 4}
	sessionID := []byte{9, 8, 7}

	// sha1 digest is 20 bytes; ask for more than one block's worth to
	// exercise the multi-iteration path (K2 = Hash(K||H||K1)).
	out := deriveKeyMaterial(sha1.New, K, H, sessionID, kdfKeyClientToServer, 45)
	require.Len(t, out, 45)

	again := deriveKeyMaterial(sha1.New, K, H, sessionID, kdfKeyClientToServer, 45)
	require.Equal(t, out, again)

	other := deriveKeyMaterial(sha1.New, K, H, sessionID, kdfKeyServerToClient, 45)
	require.NotEqual(t, out, other, "label must be bound into the output")
}

func TestDeriveKeyMaterialShortLength(t *testing.T) {
	K := big.NewInt(1)
	H := []byte{0xaa}
	sessionID := []byte{0xbb}
	out := deriveKeyMaterial(sha1.New, K, H, sessionID, kdfIVClientToServer, 16)
	require.Len(t, out, 16)
}

func TestDeriveSessionKeysProducesCorrectLengths(t *testing.T) {
	algos := &negotiatedAlgorithms{
		kex:     kexAlgoDH14SHA1,
		hostKey: hostKeyAlgoSSHRSA,
		w:       directionAlgorithms{cipher: cipherAlgoAES128CTR, mac: macAlgoHMACSHA256},
		r:       directionAlgorithms{cipher: cipherAlgoAES128CBC, mac: macAlgoHMACSHA512},
	}
	K := big.NewInt(123456789)
	H := []byte{1, 2, 3}
	sessionID := []byte{4, 5, 6}

	keys, err := deriveSessionKeys(sha1.New, algos, K, H, sessionID)
	require.NoError(t, err)
	require.Len(t, keys.ivClientToServer, 16)
	require.Len(t, keys.keyClientToServer, 16)
	require.Len(t, keys.macKeyClientToServer, 32)
	require.Len(t, keys.ivServerToClient, 16)
	require.Len(t, keys.keyServerToClient, 16)
	require.Len(t, keys.macKeyServerToClient, 64)
}

func TestDeriveSessionKeysUnknownAlgorithm(t *testing.T) {
	algos := &negotiatedAlgorithms{
		w: directionAlgorithms{cipher: "unknown-cipher", mac: macAlgoHMACSHA256},
		r: directionAlgorithms{cipher: cipherAlgoAES128CTR, mac: macAlgoHMACSHA256},
	}
	_, err := deriveSessionKeys(sha1.New, algos, big.NewInt(1), []byte{1}, []byte{1})
	require.ErrorIs(t, err, ErrProtocolViolation)
}
