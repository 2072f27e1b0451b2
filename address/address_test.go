package address

import (
	"errors"
	"testing"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/program"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goldFeed = "0x765d2ba906dbc32ca17cc11f5310a89e9ee1f6420508c63861f2f8ba4ee34bb2"

func testEngine(t *testing.T) *Engine {
	t.Helper()
	feed, err := ParseFeedID(goldFeed)
	require.NoError(t, err)
	e, err := NewEngine(Params{
		ProgramID: solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"),
		GoldMint:  solana.MustPublicKeyFromBase58("9n4nbM75f5Ui33ZbPYXn59EwSgE8CGsHtAeTH5YFeJ9E"),
		UsdcMint:  program.USDCMainnet,
		FeedID:    feed,
	})
	require.NoError(t, err)
	return e
}

func TestStateAddress_Deterministic(t *testing.T) {
	e := testEngine(t)
	a, err := e.StateAddress()
	require.NoError(t, err)
	b, err := e.StateAddress()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := testEngine(t)
	c, err := other.StateAddress()
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestStatePDA_BumpVerifies(t *testing.T) {
	e := testEngine(t)
	pda, err := e.StatePDA()
	require.NoError(t, err)

	addr, err := solana.CreateProgramAddress([][]byte{[]byte(StateSeed), {pda.Bump}}, e.ProgramID())
	require.NoError(t, err)
	assert.Equal(t, pda.Address, addr)
}

func TestAssociatedTokenAddress(t *testing.T) {
	e := testEngine(t)
	ownerA := solana.NewWallet().PublicKey()
	ownerB := solana.NewWallet().PublicKey()

	a1, err := e.AssociatedTokenAddress(e.GoldMint(), ownerA)
	require.NoError(t, err)
	a2, err := e.AssociatedTokenAddress(e.GoldMint(), ownerA)
	require.NoError(t, err)
	b, err := e.AssociatedTokenAddress(e.GoldMint(), ownerB)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)

	usdc, err := e.AssociatedTokenAddress(e.UsdcMint(), ownerA)
	require.NoError(t, err)
	assert.NotEqual(t, a1, usdc)

	want, _, err := solana.FindAssociatedTokenAddress(ownerA, e.GoldMint())
	require.NoError(t, err)
	assert.Equal(t, want, a1)
}

func TestVaultAccounts_OwnedByState(t *testing.T) {
	e := testEngine(t)
	state, err := e.StateAddress()
	require.NoError(t, err)

	vault, err := e.VaultTokenAccount()
	require.NoError(t, err)
	want, _, err := solana.FindAssociatedTokenAddress(state, e.GoldMint())
	require.NoError(t, err)
	assert.Equal(t, want, vault)

	vaultUsdc, err := e.VaultUsdcAccount()
	require.NoError(t, err)
	assert.NotEqual(t, vault, vaultUsdc)
}

func TestPriceFeedAddress(t *testing.T) {
	e := testEngine(t)
	a, err := e.PriceFeedAddress()
	require.NoError(t, err)
	b, err := PriceFeedAddress(program.PythPushOracle, e.feedID, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	shard1, err := PriceFeedAddress(program.PythPushOracle, e.feedID, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, shard1)

	manual, _, err := solana.FindProgramAddress([][]byte{{0, 0}, e.feedID[:]}, program.PythPushOracle)
	require.NoError(t, err)
	assert.Equal(t, manual, a)
}

func TestParseFeedID(t *testing.T) {
	id, err := ParseFeedID(goldFeed)
	require.NoError(t, err)
	assert.Equal(t, goldFeed, id.String())

	noPrefix, err := ParseFeedID(goldFeed[2:])
	require.NoError(t, err)
	assert.Equal(t, id, noPrefix)

	for _, bad := range []string{"", "0x1234", "zz" + goldFeed[4:]} {
		_, err := ParseFeedID(bad)
		assert.True(t, errors.Is(err, errs.ErrAddressDerivation), bad)
	}
}

func TestMalformedInput(t *testing.T) {
	_, err := Derive([][]byte{make([]byte, 33)}, program.System)
	assert.ErrorIs(t, err, errs.ErrAddressDerivation)

	_, err = Derive([][]byte{[]byte(StateSeed)}, solana.PublicKey{})
	assert.ErrorIs(t, err, errs.ErrAddressDerivation)

	_, err = AssociatedTokenAddress(solana.PublicKey{}, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, errs.ErrAddressDerivation)

	_, err = PriceFeedAddress(program.PythPushOracle, FeedID{}, 0)
	assert.ErrorIs(t, err, errs.ErrAddressDerivation)

	_, err = NewEngine(Params{ProgramID: program.System})
	assert.ErrorIs(t, err, errs.ErrAddressDerivation)

	_, err = NewEngine(Params{
		ProgramID: program.System,
		GoldMint:  solana.NewWallet().PublicKey(),
		UsdcMint:  program.USDCMainnet,
	})
	assert.ErrorIs(t, err, errs.ErrAddressDerivation)
	assert.Contains(t, err.Error(), "price feed id")
}
