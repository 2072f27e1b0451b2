package gold

import (
	"crypto/sha256"
	"testing"

	"github.com/egaotan/solana-gold/address"
	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/program"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identity struct {
	key       solana.PublicKey
	connected bool
}

func (i identity) ActiveAddress() (solana.PublicKey, bool) {
	return i.key, i.connected
}

func newTestProgram(t *testing.T) *Program {
	t.Helper()
	feed, err := address.ParseFeedID("0x765d2ba906dbc32ca17cc11f5310a89e9ee1f6420508c63861f2f8ba4ee34bb2")
	require.NoError(t, err)
	engine, err := address.NewEngine(address.Params{
		ProgramID: solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"),
		GoldMint:  solana.MustPublicKeyFromBase58("9n4nbM75f5Ui33ZbPYXn59EwSgE8CGsHtAeTH5YFeJ9E"),
		UsdcMint:  program.USDCMainnet,
		FeedID:    feed,
	})
	require.NoError(t, err)
	return NewProgram(engine)
}

func connected() identity {
	return identity{key: solana.NewWallet().PublicKey(), connected: true}
}

func keys(metas []*solana.AccountMeta) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.PublicKey)
	}
	return out
}

func TestDiscriminator(t *testing.T) {
	h := sha256.Sum256([]byte("global:buy_gold_tokens"))
	d := OpBuy.Discriminator()
	assert.Equal(t, h[:8], d[:])

	h = sha256.Sum256([]byte("account:GoldState"))
	assert.Equal(t, h[:8], GoldStateDiscriminator[:])
}

func TestBuyGoldTokens(t *testing.T) {
	p := newTestProgram(t)
	buyer := connected()

	req, err := p.BuyGoldTokens(buyer, "100.00")
	require.NoError(t, err)
	assert.Equal(t, OpBuy, req.Operation)
	assert.Equal(t, buyer.key, req.Signer)
	assert.Equal(t, &BuyArgs{UsdcAmount: 100000000}, req.Args)

	var args BuyArgs
	require.NoError(t, DecodeArgs(req.Data, &args))
	assert.Equal(t, uint64(100000000), args.UsdcAmount)

	addr := p.Addresses()
	state, _ := addr.StateAddress()
	vaultToken, _ := addr.VaultTokenAccount()
	vaultUsdc, _ := addr.VaultUsdcAccount()
	buyerToken, _ := addr.UserTokenAccount(buyer.key)
	buyerUsdc, _ := addr.UserUsdcAccount(buyer.key)
	assert.Equal(t, []solana.PublicKey{
		state, addr.GoldMint(), addr.UsdcMint(), vaultToken, vaultUsdc, buyer.key,
		buyerToken, buyerUsdc, program.Token, program.System, program.AssociatedToken,
	}, keys(req.Accounts))

	signers := 0
	for _, m := range req.Accounts {
		if m.IsSigner {
			signers++
			assert.Equal(t, buyer.key, m.PublicKey)
			assert.True(t, m.IsWritable)
		}
	}
	assert.Equal(t, 1, signers)
	assert.False(t, req.Accounts[2].IsWritable)

	ins := req.Instruction()
	assert.Equal(t, p.Id(), ins.ProgramID())
	data, err := ins.Data()
	require.NoError(t, err)
	assert.Equal(t, req.Data, data)
}

func TestSellMatchesBuyShape(t *testing.T) {
	p := newTestProgram(t)
	who := connected()
	buy, err := p.BuyGoldTokens(who, "1")
	require.NoError(t, err)
	sell, err := p.SellGoldTokens(who, "2.5")
	require.NoError(t, err)

	assert.Equal(t, buy.Accounts, sell.Accounts)
	assert.Equal(t, &SellArgs{GoldAmount: 2500000}, sell.Args)
	assert.NotEqual(t, buy.Data[:8], sell.Data[:8])
}

func TestInitialize(t *testing.T) {
	p := newTestProgram(t)
	authority := connected()
	oracle := solana.NewWallet().PublicKey()

	req, err := p.Initialize(authority, oracle.String(), "VaultCo")
	require.NoError(t, err)

	var args InitializeArgs
	require.NoError(t, DecodeArgs(req.Data, &args))
	assert.Equal(t, oracle, args.OracleAuthority)
	assert.Equal(t, "VaultCo", args.CustodyProvider)

	state, _ := p.Addresses().StateAddress()
	assert.Equal(t, []solana.PublicKey{
		state, p.Addresses().GoldMint(), authority.key, program.System, program.Token,
	}, keys(req.Accounts))
	assert.True(t, req.Accounts[2].IsSigner)

	_, err = p.Initialize(authority, "not-a-key", "VaultCo")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = p.Initialize(authority, oracle.String(), "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = p.Initialize(authority, "", "")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.Equal(t, []string{"oracle_authority", "custody_provider"}, errs.Fields(err))
}

func TestUpdateGoldPrice(t *testing.T) {
	p := newTestProgram(t)
	oracle := connected()

	req, err := p.UpdateGoldPrice(oracle)
	require.NoError(t, err)
	assert.Len(t, req.Data, DiscriminatorSize)
	assert.Nil(t, req.Args)

	feed, err := p.Addresses().PriceFeedAddress()
	require.NoError(t, err)
	require.Len(t, req.Accounts, 3)
	assert.Equal(t, oracle.key, req.Accounts[1].PublicKey)
	assert.True(t, req.Accounts[1].IsSigner)
	assert.False(t, req.Accounts[1].IsWritable)
	assert.Equal(t, feed, req.Accounts[2].PublicKey)
	assert.False(t, req.Accounts[2].IsWritable)
}

func TestMintGoldTokens(t *testing.T) {
	p := newTestProgram(t)
	authority := connected()

	req, err := p.MintGoldTokens(authority, "10", "receipt-42")
	require.NoError(t, err)
	var args MintArgs
	require.NoError(t, DecodeArgs(req.Data, &args))
	assert.Equal(t, MintArgs{Amount: 10000000, CustodyReceipt: "receipt-42"}, args)

	vault, _ := p.Addresses().VaultTokenAccount()
	assert.Equal(t, vault, req.Accounts[2].PublicKey)
	assert.Len(t, req.Accounts, 7)

	_, err = p.MintGoldTokens(authority, "10", "")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestRedeemPhysicalGold(t *testing.T) {
	p := newTestProgram(t)
	user := connected()

	_, err := p.RedeemPhysicalGold(user, "1.5", "")
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindInvalidInput, e.Kind)
	assert.Equal(t, "shipping_address", e.Field)

	_, err = p.RedeemPhysicalGold(user, "-1", " ")
	assert.Equal(t, []string{"gold_amount", "shipping_address"}, errs.Fields(err))

	req, err := p.RedeemPhysicalGold(user, "1.5", "1 Bullion Way")
	require.NoError(t, err)
	var args RedeemArgs
	require.NoError(t, DecodeArgs(req.Data, &args))
	assert.Equal(t, RedeemArgs{GoldAmount: 1500000, ShippingAddress: "1 Bullion Way"}, args)
}

func TestBuilders_RequireWallet(t *testing.T) {
	p := newTestProgram(t)
	for _, id := range []Identity{nil, identity{}} {
		for _, op := range Operations {
			_, err := p.Build(id, op, Inputs{Amount: "1", OracleAuthority: solana.NewWallet().PublicKey().String(),
				CustodyProvider: "c", CustodyReceipt: "r", ShippingAddress: "s"})
			assert.ErrorIs(t, err, errs.ErrWalletNotConnected, string(op))
		}
	}
}

func TestBuilders_RejectAmounts(t *testing.T) {
	p := newTestProgram(t)
	id := connected()
	for _, op := range []Operation{OpMint, OpBuy, OpSell, OpRedeem} {
		for _, bad := range []string{"-5", "abc", "0"} {
			_, err := p.Build(id, op, Inputs{Amount: bad, CustodyReceipt: "r", ShippingAddress: "s"})
			assert.ErrorIs(t, err, errs.ErrInvalidInput, "%s %s", op, bad)
		}
	}
	_, err := p.Build(id, Operation("close"), Inputs{})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestGoldState_RoundTrip(t *testing.T) {
	state := &GoldState{
		Authority:         solana.NewWallet().PublicKey(),
		OracleAuthority:   solana.NewWallet().PublicKey(),
		CustodyProvider:   "VaultCo",
		GoldPriceUsdCents: 235007,
		TotalTokensMinted: 0,
	}
	data, err := state.Encode()
	require.NoError(t, err)

	got, err := DecodeGoldState(append(data, 254))
	require.NoError(t, err)
	assert.Equal(t, state, got)

	_, err = DecodeGoldState(data[:4])
	assert.Error(t, err)
	bad := append([]byte{}, data...)
	bad[0] ^= 0xff
	_, err = DecodeGoldState(bad)
	assert.Error(t, err)
}
