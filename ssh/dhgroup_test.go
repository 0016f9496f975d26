package ssh

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDHGroupsParseToExpectedBitLength(t *testing.T) {
	g1, ok := lookupDHGroup(kexAlgoDH1SHA1)
	require.True(t, ok)
	require.Equal(t, 1024, g1.p.BitLen())

	g14, ok := lookupDHGroup(kexAlgoDH14SHA1)
	require.True(t, ok)
	require.Equal(t, 2048, g14.p.BitLen())
}

func TestDHGroupKeyPairInRange(t *testing.T) {
	g, ok := lookupDHGroup(kexAlgoDH14SHA1)
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		pub, priv, err := g.keyPair(rand.Reader)
		require.NoError(t, err)
		require.True(t, priv.Cmp(bigTwo) >= 0)
		require.True(t, priv.Cmp(g.pMinus2) <= 0)
		require.True(t, pub.Cmp(bigTwo) >= 0)
		require.True(t, pub.Cmp(g.p) < 0)
	}
}

// TestDHGroupValidatePeerPublicRejectsBoundaryValues is the boundary case:
// f = 1 or f = p-1 (i.e. outside [2, p-2]) must be rejected.
func TestDHGroupValidatePeerPublicRejectsBoundaryValues(t *testing.T) {
	g, ok := lookupDHGroup(kexAlgoDH14SHA1)
	require.True(t, ok)

	require.Error(t, g.validatePeerPublic(bigOne))
	pMinus1 := new(big.Int).Sub(g.p, bigOne)
	require.Error(t, g.validatePeerPublic(pMinus1))

	require.NoError(t, g.validatePeerPublic(bigTwo))
	require.NoError(t, g.validatePeerPublic(g.pMinus2))
}

func TestDHGroupSharedSecretAgrees(t *testing.T) {
	g, ok := lookupDHGroup(kexAlgoDH1SHA1)
	require.True(t, ok)

	aPub, aPriv, err := g.keyPair(rand.Reader)
	require.NoError(t, err)
	bPub, bPriv, err := g.keyPair(rand.Reader)
	require.NoError(t, err)

	kA := g.sharedSecret(bPub, aPriv)
	kB := g.sharedSecret(aPub, bPriv)
	require.Equal(t, kA.String(), kB.String())
}
