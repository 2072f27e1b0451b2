package statesync

import (
	"context"
	"sync"
	"time"

	"github.com/egaotan/solana-gold/backend"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

type Subscriber interface {
	SubscribeAccount(ctx context.Context, pubkey solana.PublicKey, cb backend.AccountCallback) error
}

// OwnerFunc reports the wallet whose balances the watcher keeps fresh.
type OwnerFunc func() (solana.PublicKey, bool)

// Watcher refreshes on a ticker and whenever the state account changes.
// Refresh failures stay in the synchronizer's health; the watcher keeps going.
type Watcher struct {
	ctx      context.Context
	wg       sync.WaitGroup
	logger   zerolog.Logger
	sync     *Synchronizer
	sub      Subscriber
	owner    OwnerFunc
	interval time.Duration
	trigger  chan struct{}
}

func NewWatcher(ctx context.Context, synchronizer *Synchronizer, sub Subscriber, owner OwnerFunc, interval time.Duration, logger zerolog.Logger) *Watcher {
	return &Watcher{
		ctx:      ctx,
		logger:   logger.With().Str("component", "watcher").Logger(),
		sync:     synchronizer,
		sub:      sub,
		owner:    owner,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

func (w *Watcher) Start() {
	if w.sub != nil {
		if err := w.subscribe(); err != nil {
			w.logger.Warn().Err(err).Msg("state subscription unavailable, polling only")
		}
	}
	w.wg.Add(1)
	go w.loop()
}

// Stop waits for the loop; cancel the watcher's context first.
func (w *Watcher) Stop() {
	w.wg.Wait()
}

func (w *Watcher) subscribe() error {
	state, err := w.sync.addr.StateAddress()
	if err != nil {
		return err
	}
	return w.sub.SubscribeAccount(w.ctx, state, w)
}

func (w *Watcher) OnAccountUpdate(account *backend.Account) error {
	w.Trigger()
	return nil
}

// Trigger asks for a refresh without waiting for the next tick. Requests that
// arrive while one is queued collapse into it.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.refresh()
		case <-w.trigger:
			w.refresh()
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) refresh() {
	var owner solana.PublicKey
	if w.owner != nil {
		if key, ok := w.owner(); ok {
			owner = key
		}
	}
	if err := w.sync.Refresh(w.ctx, owner); err != nil {
		w.logger.Debug().Err(err).Msg("background refresh")
	}
}
