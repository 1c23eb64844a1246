package address

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var programID = solana.MustPublicKeyFromBase58("EzUq3vK7g8JvTLQzKvNAzBCjRz6wNJaZMWZPQVRz7nJq")

func TestConfig_SignerSeedsProveAddress(t *testing.T) {
	addr, bump, err := Config(programID)
	require.NoError(t, err)

	proved, err := solana.CreateProgramAddress(ConfigSignerSeeds(bump), programID)
	require.NoError(t, err)
	assert.Equal(t, addr, proved)
}

func TestOrder_DeterministicAndDistinct(t *testing.T) {
	a1, b1, err := Order(programID, 42)
	require.NoError(t, err)
	a2, b2, err := Order(programID, 42)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	other, _, err := Order(programID, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a1, other)
}

func TestAssociatedToken_MatchesLibrary(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.SolMint

	got, err := AssociatedToken(owner, mint)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
