// Package wallet signs and submits gold requests.
package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/egaotan/solana-gold/backend"
	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// Wallet is the signing collaborator. SignAndSubmit returns the signature
// whenever the transaction may have reached the cluster, even alongside an
// error.
type Wallet interface {
	IsConnected() bool
	ActiveAddress() (solana.PublicKey, bool)
	SignAndSubmit(ctx context.Context, req *gold.Request) (solana.Signature, error)
}

// Chain is the part of the backend a keypair wallet submits through.
type Chain interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Send(ctx context.Context, trx *solana.Transaction) (solana.Signature, error)
	WaitConfirmed(ctx context.Context, signature solana.Signature) error
}

// Approver is asked before every signature; false means the user declined.
type Approver func(req *gold.Request) bool

type Keypair struct {
	logger    zerolog.Logger
	key       solana.PrivateKey
	chain     Chain
	lock      sync.RWMutex
	connected bool
	approve   Approver
}

func NewKeypair(key solana.PrivateKey, chain Chain, logger zerolog.Logger) *Keypair {
	return &Keypair{
		logger:    logger.With().Str("component", "wallet").Str("address", key.PublicKey().String()).Logger(),
		key:       key,
		chain:     chain,
		connected: true,
	}
}

func FromBase58(secret string, chain Chain, logger zerolog.Logger) (*Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, errs.Wrap(errs.KindSignerUnavailable, err, "decode secret key")
	}
	return NewKeypair(key, chain, logger), nil
}

// FromFile loads a solana-keygen json keypair.
func FromFile(path string, chain Chain, logger zerolog.Logger) (*Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, errs.Wrapf(errs.KindSignerUnavailable, err, "read keypair %s", path)
	}
	return NewKeypair(key, chain, logger), nil
}

func (k *Keypair) SetApprover(approve Approver) {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.approve = approve
}

func (k *Keypair) Connect() {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.connected = true
}

func (k *Keypair) Disconnect() {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.connected = false
}

func (k *Keypair) IsConnected() bool {
	k.lock.RLock()
	defer k.lock.RUnlock()
	return k.connected
}

func (k *Keypair) ActiveAddress() (solana.PublicKey, bool) {
	if !k.IsConnected() {
		return solana.PublicKey{}, false
	}
	return k.key.PublicKey(), true
}

func (k *Keypair) getKey(key solana.PublicKey) *solana.PrivateKey {
	if key.Equals(k.key.PublicKey()) {
		return &k.key
	}
	return nil
}

// SignAndSubmit builds a transaction around the request with a fresh
// blockhash, signs it, sends it and waits for confirmed commitment.
func (k *Keypair) SignAndSubmit(ctx context.Context, req *gold.Request) (solana.Signature, error) {
	k.lock.RLock()
	connected, approve := k.connected, k.approve
	k.lock.RUnlock()
	if !connected {
		return solana.Signature{}, errs.New(errs.KindSignerUnavailable, "wallet is disconnected")
	}
	if !req.Signer.Equals(k.key.PublicKey()) {
		return solana.Signature{}, errs.New(errs.KindSignerUnavailable, "request signer is not this wallet")
	}
	if approve != nil && !approve(req) {
		return solana.Signature{}, errs.ErrUserRejected
	}
	blockhash, err := k.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, errs.Wrap(errs.KindSubmissionRejected, err, "get latest blockhash")
	}
	trx, err := solana.NewTransaction([]solana.Instruction{req.Instruction()}, blockhash, solana.TransactionPayer(req.Signer))
	if err != nil {
		return solana.Signature{}, errs.Wrap(errs.KindSubmissionRejected, err, "build transaction")
	}
	if _, err := trx.Sign(k.getKey); err != nil {
		return solana.Signature{}, errs.Wrap(errs.KindSignerUnavailable, err, "sign transaction")
	}
	signature := trx.Signatures[0]
	log := k.logger.With().Str("operation", string(req.Operation)).Str("signature", signature.String()).Logger()

	if _, err := k.chain.Send(ctx, trx); err != nil {
		if backend.IsRejection(err) {
			log.Warn().Err(err).Msg("transaction rejected")
			return solana.Signature{}, errs.Wrap(errs.KindSubmissionRejected, err, "send transaction")
		}
		log.Warn().Err(err).Msg("send outcome unknown")
		return signature, errs.Wrap(errs.KindSubmissionUnknown, err, "send transaction")
	}
	if err := k.chain.WaitConfirmed(ctx, signature); err != nil {
		if backend.IsRejection(err) {
			log.Warn().Err(err).Msg("transaction failed")
			return signature, errs.Wrap(errs.KindSubmissionRejected, err, "transaction failed")
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn().Msg("confirmation not observed in time")
		}
		return signature, errs.Wrap(errs.KindSubmissionUnknown, err, "await confirmation")
	}
	log.Info().Msg("transaction confirmed")
	return signature, nil
}
