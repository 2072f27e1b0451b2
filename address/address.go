// Package address derives every account the gold program expects.
//
// All derivations are pure: no I/O and no state beyond the configured
// identifiers, so the same inputs yield the same address anywhere, matching
// what the program re-derives on chain.
package address

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/program"
	"github.com/gagliardetto/solana-go"
)

const (
	StateSeed = "gold_state"
	// FeedIDSize is the length of a Pyth price feed id.
	FeedIDSize = 32
	// MaxSeedLen mirrors the runtime limit on a single PDA seed.
	MaxSeedLen = 32
	MaxSeeds   = 16
)

type PDA struct {
	Address solana.PublicKey
	Bump    uint8
}

type FeedID [FeedIDSize]byte

// ParseFeedID accepts a 64 hex character feed id with or without 0x prefix.
func ParseFeedID(s string) (FeedID, error) {
	var id FeedID
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return id, errs.Wrapf(errs.KindAddressDerivation, err, "feed id %q is not hex", s)
	}
	if len(b) != FeedIDSize {
		return id, errs.New(errs.KindAddressDerivation, "feed id must be 32 bytes")
	}
	copy(id[:], b)
	return id, nil
}

func (id FeedID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Derive runs the program-address search for seeds under programID.
func Derive(seeds [][]byte, programID solana.PublicKey) (PDA, error) {
	if programID.IsZero() {
		return PDA{}, errs.New(errs.KindAddressDerivation, "program id is empty")
	}
	if len(seeds) > MaxSeeds-1 {
		return PDA{}, errs.New(errs.KindAddressDerivation, "too many seeds")
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return PDA{}, errs.New(errs.KindAddressDerivation, "seed longer than 32 bytes")
		}
	}
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return PDA{}, errs.Wrap(errs.KindAddressDerivation, err, "find program address")
	}
	return PDA{Address: addr, Bump: bump}, nil
}

// Engine holds the deployment identifiers every derivation is scoped to.
type Engine struct {
	programID       solana.PublicKey
	goldMint        solana.PublicKey
	usdcMint        solana.PublicKey
	oracleProgramID solana.PublicKey
	feedID          FeedID
	shard           uint16
}

type Params struct {
	ProgramID       solana.PublicKey
	GoldMint        solana.PublicKey
	UsdcMint        solana.PublicKey
	OracleProgramID solana.PublicKey
	FeedID          FeedID
	Shard           uint16
}

func NewEngine(p Params) (*Engine, error) {
	if p.ProgramID.IsZero() {
		return nil, errs.New(errs.KindAddressDerivation, "program id is required")
	}
	if p.GoldMint.IsZero() {
		return nil, errs.New(errs.KindAddressDerivation, "gold mint is required")
	}
	if p.UsdcMint.IsZero() {
		return nil, errs.New(errs.KindAddressDerivation, "usdc mint is required")
	}
	if p.FeedID == (FeedID{}) {
		return nil, errs.New(errs.KindAddressDerivation, "price feed id is required")
	}
	if p.OracleProgramID.IsZero() {
		p.OracleProgramID = program.PythPushOracle
	}
	return &Engine{
		programID:       p.ProgramID,
		goldMint:        p.GoldMint,
		usdcMint:        p.UsdcMint,
		oracleProgramID: p.OracleProgramID,
		feedID:          p.FeedID,
		shard:           p.Shard,
	}, nil
}

func (e *Engine) ProgramID() solana.PublicKey {
	return e.programID
}

func (e *Engine) GoldMint() solana.PublicKey {
	return e.goldMint
}

func (e *Engine) UsdcMint() solana.PublicKey {
	return e.usdcMint
}

func (e *Engine) StatePDA() (PDA, error) {
	return Derive([][]byte{[]byte(StateSeed)}, e.programID)
}

func (e *Engine) StateAddress() (solana.PublicKey, error) {
	pda, err := e.StatePDA()
	return pda.Address, err
}

// AssociatedTokenAddress derives the canonical token account of owner for
// mint. Owner may itself be a PDA.
func (e *Engine) AssociatedTokenAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	return AssociatedTokenAddress(mint, owner)
}

func (e *Engine) VaultTokenAccount() (solana.PublicKey, error) {
	state, err := e.StateAddress()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return AssociatedTokenAddress(e.goldMint, state)
}

func (e *Engine) VaultUsdcAccount() (solana.PublicKey, error) {
	state, err := e.StateAddress()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return AssociatedTokenAddress(e.usdcMint, state)
}

func (e *Engine) UserTokenAccount(owner solana.PublicKey) (solana.PublicKey, error) {
	return AssociatedTokenAddress(e.goldMint, owner)
}

func (e *Engine) UserUsdcAccount(owner solana.PublicKey) (solana.PublicKey, error) {
	return AssociatedTokenAddress(e.usdcMint, owner)
}

// PriceFeedAddress derives the configured gold/usd feed account.
func (e *Engine) PriceFeedAddress() (solana.PublicKey, error) {
	return PriceFeedAddress(e.oracleProgramID, e.feedID, e.shard)
}

func AssociatedTokenAddress(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	if mint.IsZero() {
		return solana.PublicKey{}, errs.New(errs.KindAddressDerivation, "mint is empty")
	}
	if owner.IsZero() {
		return solana.PublicKey{}, errs.New(errs.KindAddressDerivation, "owner is empty")
	}
	pda, err := Derive([][]byte{
		owner[:],
		program.Token[:],
		mint[:],
	}, program.AssociatedToken)
	return pda.Address, err
}

// PriceFeedAddress derives a push-oracle feed account.
// Seeds: [shard as u16 little endian, feed id]
func PriceFeedAddress(oracleProgramID solana.PublicKey, feedID FeedID, shard uint16) (solana.PublicKey, error) {
	if feedID == (FeedID{}) {
		return solana.PublicKey{}, errs.New(errs.KindAddressDerivation, "feed id is empty")
	}
	shardSeed := make([]byte, 2)
	binary.LittleEndian.PutUint16(shardSeed, shard)
	pda, err := Derive([][]byte{shardSeed, feedID[:]}, oracleProgramID)
	return pda.Address, err
}
