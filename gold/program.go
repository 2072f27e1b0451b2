// Package gold builds the unsigned requests of the gold program and decodes
// its state account.
package gold

import (
	"errors"
	"strings"

	"github.com/egaotan/solana-gold/address"
	"github.com/egaotan/solana-gold/amount"
	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/program"
	"github.com/gagliardetto/solana-go"
)

// Identity supplies the signer of a request.
type Identity interface {
	ActiveAddress() (solana.PublicKey, bool)
}

type Program struct {
	addr *address.Engine
}

func NewProgram(addr *address.Engine) *Program {
	return &Program{
		addr: addr,
	}
}

func (p *Program) Name() string {
	return "gold"
}

func (p *Program) Id() solana.PublicKey {
	return p.addr.ProgramID()
}

func (p *Program) Addresses() *address.Engine {
	return p.addr
}

func signerOf(id Identity) (solana.PublicKey, error) {
	if id == nil {
		return solana.PublicKey{}, errs.ErrWalletNotConnected
	}
	key, ok := id.ActiveAddress()
	if !ok || key.IsZero() {
		return solana.PublicKey{}, errs.ErrWalletNotConnected
	}
	return key, nil
}

func required(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errs.InvalidInput(field, "is required")
	}
	return s, nil
}

func publicKey(field, s string) (solana.PublicKey, error) {
	s, err := required(field, s)
	if err != nil {
		return solana.PublicKey{}, err
	}
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, errs.InvalidInput(field, "is not a valid address")
	}
	return key, nil
}

func (p *Program) request(op Operation, signer solana.PublicKey, accounts []*solana.AccountMeta, args interface{}) (*Request, error) {
	data, err := encodeData(op, args)
	if err != nil {
		return nil, errs.Wrapf(errs.KindInvalidInput, err, "encode %s arguments", op)
	}
	return &Request{
		Operation: op,
		Signer:    signer,
		ProgramID: p.Id(),
		Accounts:  accounts,
		Args:      args,
		Data:      data,
	}, nil
}

// Initialize creates the protocol state. The connected wallet becomes the authority.
func (p *Program) Initialize(id Identity, oracleAuthority, custodyProvider string) (*Request, error) {
	authority, err := signerOf(id)
	if err != nil {
		return nil, err
	}
	oracle, oracleErr := publicKey("oracle_authority", oracleAuthority)
	custody, custodyErr := required("custody_provider", custodyProvider)
	if err := errors.Join(oracleErr, custodyErr); err != nil {
		return nil, err
	}
	state, err := p.addr.StateAddress()
	if err != nil {
		return nil, err
	}
	accounts := []*solana.AccountMeta{
		program.Writable(state),
		program.Writable(p.addr.GoldMint()),
		program.WritableSigner(authority),
		program.Readonly(program.System),
		program.Readonly(program.Token),
	}
	return p.request(OpInitialize, authority, accounts, &InitializeArgs{
		OracleAuthority: oracle,
		CustodyProvider: custody,
	})
}

// UpdateGoldPrice pulls the latest feed price into the state. The connected
// wallet must be the oracle authority; the program enforces that.
func (p *Program) UpdateGoldPrice(id Identity) (*Request, error) {
	oracle, err := signerOf(id)
	if err != nil {
		return nil, err
	}
	state, err := p.addr.StateAddress()
	if err != nil {
		return nil, err
	}
	feed, err := p.addr.PriceFeedAddress()
	if err != nil {
		return nil, err
	}
	accounts := []*solana.AccountMeta{
		program.Writable(state),
		program.Signer(oracle),
		program.Readonly(feed),
	}
	return p.request(OpUpdatePrice, oracle, accounts, nil)
}

func (p *Program) MintGoldTokens(id Identity, amountStr, custodyReceipt string) (*Request, error) {
	authority, err := signerOf(id)
	if err != nil {
		return nil, err
	}
	n, amountErr := amount.ToOnChain("amount", amountStr)
	receipt, receiptErr := required("custody_receipt", custodyReceipt)
	if err := errors.Join(amountErr, receiptErr); err != nil {
		return nil, err
	}
	state, err := p.addr.StateAddress()
	if err != nil {
		return nil, err
	}
	vault, err := p.addr.VaultTokenAccount()
	if err != nil {
		return nil, err
	}
	accounts := []*solana.AccountMeta{
		program.Writable(state),
		program.Writable(p.addr.GoldMint()),
		program.Writable(vault),
		program.WritableSigner(authority),
		program.Readonly(program.Token),
		program.Readonly(program.AssociatedToken),
		program.Readonly(program.System),
	}
	return p.request(OpMint, authority, accounts, &MintArgs{
		Amount:         n,
		CustodyReceipt: receipt,
	})
}

// BuyGoldTokens spends usdc for gold. The buyer's gold account is created by
// the program when missing, so only its address is needed here.
func (p *Program) BuyGoldTokens(id Identity, usdcAmount string) (*Request, error) {
	buyer, err := signerOf(id)
	if err != nil {
		return nil, err
	}
	n, err := amount.ToOnChain("usdc_amount", usdcAmount)
	if err != nil {
		return nil, err
	}
	accounts, err := p.tradeAccounts(buyer)
	if err != nil {
		return nil, err
	}
	return p.request(OpBuy, buyer, accounts, &BuyArgs{UsdcAmount: n})
}

func (p *Program) SellGoldTokens(id Identity, goldAmount string) (*Request, error) {
	seller, err := signerOf(id)
	if err != nil {
		return nil, err
	}
	n, err := amount.ToOnChain("gold_amount", goldAmount)
	if err != nil {
		return nil, err
	}
	accounts, err := p.tradeAccounts(seller)
	if err != nil {
		return nil, err
	}
	return p.request(OpSell, seller, accounts, &SellArgs{GoldAmount: n})
}

func (p *Program) RedeemPhysicalGold(id Identity, goldAmount, shippingAddress string) (*Request, error) {
	user, err := signerOf(id)
	if err != nil {
		return nil, err
	}
	n, amountErr := amount.ToOnChain("gold_amount", goldAmount)
	shipping, shippingErr := required("shipping_address", shippingAddress)
	if err := errors.Join(amountErr, shippingErr); err != nil {
		return nil, err
	}
	state, err := p.addr.StateAddress()
	if err != nil {
		return nil, err
	}
	userToken, err := p.addr.UserTokenAccount(user)
	if err != nil {
		return nil, err
	}
	accounts := []*solana.AccountMeta{
		program.Writable(state),
		program.Writable(p.addr.GoldMint()),
		program.Writable(userToken),
		program.WritableSigner(user),
		program.Readonly(program.Token),
	}
	return p.request(OpRedeem, user, accounts, &RedeemArgs{
		GoldAmount:      n,
		ShippingAddress: shipping,
	})
}

// tradeAccounts is the account list shared by buy and sell.
func (p *Program) tradeAccounts(trader solana.PublicKey) ([]*solana.AccountMeta, error) {
	state, err := p.addr.StateAddress()
	if err != nil {
		return nil, err
	}
	vaultToken, err := p.addr.VaultTokenAccount()
	if err != nil {
		return nil, err
	}
	vaultUsdc, err := p.addr.VaultUsdcAccount()
	if err != nil {
		return nil, err
	}
	traderToken, err := p.addr.UserTokenAccount(trader)
	if err != nil {
		return nil, err
	}
	traderUsdc, err := p.addr.UserUsdcAccount(trader)
	if err != nil {
		return nil, err
	}
	return []*solana.AccountMeta{
		program.Writable(state),
		program.Writable(p.addr.GoldMint()),
		program.Readonly(p.addr.UsdcMint()),
		program.Writable(vaultToken),
		program.Writable(vaultUsdc),
		program.WritableSigner(trader),
		program.Writable(traderToken),
		program.Writable(traderUsdc),
		program.Readonly(program.Token),
		program.Readonly(program.System),
		program.Readonly(program.AssociatedToken),
	}, nil
}

// Build dispatches a named intent with raw string inputs to its builder.
func (p *Program) Build(id Identity, op Operation, in Inputs) (*Request, error) {
	switch op {
	case OpInitialize:
		return p.Initialize(id, in.OracleAuthority, in.CustodyProvider)
	case OpUpdatePrice:
		return p.UpdateGoldPrice(id)
	case OpMint:
		return p.MintGoldTokens(id, in.Amount, in.CustodyReceipt)
	case OpBuy:
		return p.BuyGoldTokens(id, in.Amount)
	case OpSell:
		return p.SellGoldTokens(id, in.Amount)
	case OpRedeem:
		return p.RedeemPhysicalGold(id, in.Amount, in.ShippingAddress)
	}
	return nil, errs.InvalidInput("operation", "unknown operation "+string(op))
}

// Inputs carries the raw user entries of an intent. Fields an operation does
// not use are ignored.
type Inputs struct {
	Amount          string `json:"amount,omitempty"`
	OracleAuthority string `json:"oracle_authority,omitempty"`
	CustodyProvider string `json:"custody_provider,omitempty"`
	CustodyReceipt  string `json:"custody_receipt,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`
}
