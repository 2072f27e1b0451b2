// Package statesync keeps the published protocol state and balance snapshots
// of one session current.
//
// A snapshot is never patched in place. Every successful load publishes a new
// value; a failed load leaves the previous value visible and records the
// failure in the sync status instead.
package statesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/egaotan/solana-gold/address"
	"github.com/egaotan/solana-gold/amount"
	"github.com/egaotan/solana-gold/backend"
	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/spltoken"
	"github.com/egaotan/solana-gold/submit"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger is the read side of the chain. GetAccount fails with
// backend.ErrAccountNotFound when nothing exists at the address.
type Ledger interface {
	GetAccount(ctx context.Context, pubkey solana.PublicKey) ([]byte, error)
	GetNativeBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

type StateSnapshot struct {
	// Known is false until the first load completes.
	Known       bool            `json:"known"`
	Initialized bool            `json:"initialized"`
	State       *gold.GoldState `json:"state,omitempty"`
	PriceUsd    string          `json:"gold_price_usd,omitempty"`
	TotalMinted string          `json:"total_minted,omitempty"`
	LoadedAt    time.Time       `json:"loaded_at"`
}

type BalanceSnapshot struct {
	Known    bool             `json:"known"`
	Owner    solana.PublicKey `json:"owner"`
	Sol      decimal.Decimal  `json:"sol"`
	Usdc     decimal.Decimal  `json:"usdc"`
	Gold     decimal.Decimal  `json:"gold"`
	LoadedAt time.Time        `json:"loaded_at"`
}

type SyncStatus struct {
	Stale bool      `json:"stale"`
	Kind  errs.Kind `json:"kind,omitempty"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

type Health struct {
	State    SyncStatus `json:"state"`
	Balances SyncStatus `json:"balances"`
}

type Synchronizer struct {
	logger zerolog.Logger
	ledger Ledger
	addr   *address.Engine
	now    func() time.Time

	// cycle serializes refreshes so an older load never overwrites a newer one.
	cycle sync.Mutex

	lock     sync.RWMutex
	state    *StateSnapshot
	balances *BalanceSnapshot
	health   Health
	// released owners have disconnected; their balances are never published
	// again until the next InitialLoad for them.
	released map[solana.PublicKey]struct{}
}

func NewSynchronizer(ledger Ledger, addr *address.Engine, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		logger:   logger.With().Str("component", "statesync").Logger(),
		ledger:   ledger,
		addr:     addr,
		now:      time.Now,
		state:    &StateSnapshot{},
		balances: &BalanceSnapshot{},
		released: make(map[solana.PublicKey]struct{}),
	}
}

// LoadProtocolState reads the state account. A missing account is
// errs.ErrNotInitialized, anything else that goes wrong is a ReadFailure.
func (s *Synchronizer) LoadProtocolState(ctx context.Context) (*gold.GoldState, error) {
	pubkey, err := s.addr.StateAddress()
	if err != nil {
		return nil, err
	}
	data, err := s.ledger.GetAccount(ctx, pubkey)
	if errors.Is(err, backend.ErrAccountNotFound) {
		return nil, errs.ErrNotInitialized
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindReadFailure, err, "load protocol state")
	}
	state, err := gold.DecodeGoldState(data)
	if err != nil {
		return nil, errs.Wrap(errs.KindReadFailure, err, "load protocol state")
	}
	return state, nil
}

func (s *Synchronizer) IsProtocolInitialized(ctx context.Context) (bool, error) {
	_, err := s.LoadProtocolState(ctx)
	if errors.Is(err, errs.ErrNotInitialized) {
		return false, nil
	}
	return err == nil, err
}

// LoadBalances reads the native balance and both token accounts of owner. An
// owner that never held a token has no associated account; that reads as zero.
func (s *Synchronizer) LoadBalances(ctx context.Context, owner solana.PublicKey) (*BalanceSnapshot, error) {
	if owner.IsZero() {
		return nil, errs.ErrWalletNotConnected
	}
	lamports, err := s.ledger.GetNativeBalance(ctx, owner)
	if err != nil {
		return nil, errs.Wrap(errs.KindReadFailure, err, "load sol balance")
	}
	usdcAccount, err := s.addr.UserUsdcAccount(owner)
	if err != nil {
		return nil, err
	}
	usdc, err := s.tokenBalance(ctx, usdcAccount)
	if err != nil {
		return nil, err
	}
	goldAccount, err := s.addr.UserTokenAccount(owner)
	if err != nil {
		return nil, err
	}
	goldBalance, err := s.tokenBalance(ctx, goldAccount)
	if err != nil {
		return nil, err
	}
	return &BalanceSnapshot{
		Known:    true,
		Owner:    owner,
		Sol:      amount.LamportsToSol(lamports),
		Usdc:     amount.Decimal(usdc),
		Gold:     amount.Decimal(goldBalance),
		LoadedAt: s.now(),
	}, nil
}

func (s *Synchronizer) tokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	data, err := s.ledger.GetAccount(ctx, account)
	if errors.Is(err, backend.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrapf(errs.KindReadFailure, err, "load token account %s", account)
	}
	layout, err := spltoken.ParseAccount(data)
	if err != nil {
		return 0, errs.Wrapf(errs.KindReadFailure, err, "parse token account %s", account)
	}
	return layout.Amount, nil
}

func (s *Synchronizer) State() *StateSnapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state
}

func (s *Synchronizer) Balances() *BalanceSnapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.balances
}

func (s *Synchronizer) Health() Health {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.health
}

// InitialLoad is the first read of a session.
func (s *Synchronizer) InitialLoad(ctx context.Context, owner solana.PublicKey) error {
	s.lock.Lock()
	delete(s.released, owner)
	s.lock.Unlock()
	err := s.Refresh(ctx, owner)
	if err != nil {
		s.logger.Warn().Err(err).Msg("initial load")
	}
	return err
}

// Refresh reloads the protocol state and, when owner is set, its balances.
// Each half publishes independently.
func (s *Synchronizer) Refresh(ctx context.Context, owner solana.PublicKey) error {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	stateErr := s.refreshState(ctx)
	var balanceErr error
	if !owner.IsZero() {
		balanceErr = s.refreshBalances(ctx, owner)
	}
	return errors.Join(stateErr, balanceErr)
}

// RefreshAfter runs a refresh only for a confirmed outcome and reports
// whether it did.
func (s *Synchronizer) RefreshAfter(ctx context.Context, outcome submit.Outcome, owner solana.PublicKey) (bool, error) {
	if !outcome.Confirmed() {
		return false, nil
	}
	return true, s.Refresh(ctx, owner)
}

// Release drops the balance snapshot when owner's wallet goes away. Loads for
// owner still in flight, or started from a stale owner afterwards, are
// discarded.
func (s *Synchronizer) Release(owner solana.PublicKey) {
	s.lock.Lock()
	if !owner.IsZero() {
		s.released[owner] = struct{}{}
	}
	s.balances = &BalanceSnapshot{}
	s.health.Balances = SyncStatus{At: s.now()}
	s.lock.Unlock()
}

func (s *Synchronizer) refreshState(ctx context.Context) error {
	state, err := s.LoadProtocolState(ctx)
	if err != nil && !errors.Is(err, errs.ErrNotInitialized) {
		s.lock.Lock()
		s.health.State = failed(err, s.now())
		s.lock.Unlock()
		s.logger.Warn().Err(err).Msg("refresh protocol state")
		return err
	}
	snapshot := &StateSnapshot{Known: true, LoadedAt: s.now()}
	if state != nil {
		snapshot.Initialized = true
		snapshot.State = state
		snapshot.PriceUsd = amount.PriceFromCents(state.GoldPriceUsdCents)
		snapshot.TotalMinted = amount.ToDisplay(state.TotalTokensMinted)
	}
	s.lock.Lock()
	s.state = snapshot
	s.health.State = SyncStatus{At: snapshot.LoadedAt}
	s.lock.Unlock()
	return nil
}

func (s *Synchronizer) refreshBalances(ctx context.Context, owner solana.PublicKey) error {
	snapshot, err := s.LoadBalances(ctx, owner)
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.released[owner]; ok {
		s.logger.Debug().Str("owner", owner.String()).Msg("discard balances of released owner")
		return nil
	}
	if err != nil {
		s.health.Balances = failed(err, s.now())
		s.logger.Warn().Err(err).Str("owner", owner.String()).Msg("refresh balances")
		return err
	}
	s.balances = snapshot
	s.health.Balances = SyncStatus{At: snapshot.LoadedAt}
	return nil
}

func failed(err error, at time.Time) SyncStatus {
	return SyncStatus{
		Stale: true,
		Kind:  errs.KindOf(err),
		Error: err.Error(),
		At:    at,
	}
}
