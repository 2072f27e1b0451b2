package backend

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrAccountNotFound = errors.New("account not found")

type Account struct {
	PubKey  solana.PublicKey
	Account *rpc.Account
	Height  uint64
}

func (a *Account) Data() []byte {
	if a == nil || a.Account == nil || a.Account.Data == nil {
		return nil
	}
	return a.Account.Data.GetBinary()
}

func isNotFound(err error) bool {
	return errors.Is(err, rpc.ErrNotFound) || errors.Is(err, ErrAccountNotFound)
}

func (backend *Backend) Account(ctx context.Context, pubkey solana.PublicKey) (*Account, error) {
	var account *Account
	err := backend.executeWithFailover(ctx, "get_account_info", func(client *rpc.Client) error {
		response, err := client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: backend.commitment,
		})
		if err != nil {
			return err
		}
		if response == nil || response.Value == nil {
			return ErrAccountNotFound
		}
		account = &Account{
			PubKey:  pubkey,
			Height:  response.Context.Slot,
			Account: response.Value,
		}
		return nil
	}, isNotFound)
	if isNotFound(err) {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// GetAccount returns the raw account bytes or ErrAccountNotFound.
func (backend *Backend) GetAccount(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	account, err := backend.Account(ctx, pubkey)
	if err != nil {
		return nil, err
	}
	return account.Data(), nil
}

func (backend *Backend) HasAccount(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	_, err := backend.Account(ctx, pubkey)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetNativeBalance returns lamports.
func (backend *Backend) GetNativeBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var balance uint64
	err := backend.executeWithFailover(ctx, "get_balance", func(client *rpc.Client) error {
		response, err := client.GetBalance(ctx, pubkey, backend.commitment)
		if err != nil {
			return err
		}
		balance = response.Value
		return nil
	}, nil)
	return balance, err
}
