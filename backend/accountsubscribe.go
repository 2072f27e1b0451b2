package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

type AccountCallback interface {
	OnAccountUpdate(account *Account) error
}

type subscription struct {
	client *ws.Client
	sub    *ws.AccountSubscription
	once   sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.client.Close()
	})
}

// SubscribeAccount streams changes of pubkey to cb over the websocket of the
// preferred node until ctx ends or Stop is called. When the stream breaks the
// receiver exits; callers keep their own polling as a fallback.
func (backend *Backend) SubscribeAccount(ctx context.Context, pubkey solana.PublicKey, cb AccountCallback) error {
	node := backend.nodes[atomic.LoadUint32(&backend.preferred)]
	if node.Ws == "" {
		return fmt.Errorf("no websocket endpoint for %s", node.Rpc)
	}
	client, err := ws.Connect(ctx, node.Ws)
	if err != nil {
		return fmt.Errorf("connect %s: %w", node.Ws, err)
	}
	sub, err := client.AccountSubscribe(pubkey, backend.commitment)
	if err != nil {
		client.Close()
		return fmt.Errorf("account subscribe %s: %w", pubkey, err)
	}
	s := &subscription{client: client, sub: sub}
	backend.lock.Lock()
	backend.subs = append(backend.subs, s)
	backend.lock.Unlock()
	backend.wg.Add(1)
	go backend.recvAccount(ctx, pubkey, cb, s)
	return nil
}

func (backend *Backend) recvAccount(ctx context.Context, key solana.PublicKey, cb AccountCallback, s *subscription) {
	defer backend.wg.Done()
	defer s.close()
	for {
		got, err := s.sub.Recv(ctx)
		if err != nil {
			backend.logger.Warn().Err(err).Str("account", key.String()).Msg("RecvAccount exit")
			return
		}
		if got == nil {
			backend.logger.Info().Str("account", key.String()).Msg("RecvAccount exit")
			return
		}
		account := accountOf(key, got)
		if account == nil {
			backend.logger.Debug().Uint64("slot", got.Context.Slot).Str("account", key.String()).Msg("account closed")
			continue
		}
		backend.logger.Debug().Uint64("slot", account.Height).Str("account", key.String()).Msg("receive account")
		if cb != nil {
			if err := cb.OnAccountUpdate(account); err != nil {
				backend.logger.Warn().Err(err).Msg("account callback")
			}
		}
	}
}

// accountOf converts a notification; nil when the account no longer exists.
func accountOf(key solana.PublicKey, got *ws.AccountResult) *Account {
	if got == nil || got.Value == nil {
		return nil
	}
	return &Account{
		PubKey:  key,
		Account: got.Value,
		Height:  got.Context.Slot,
	}
}
