// Package backend talks to Solana rpc and websocket endpoints. Reads fail over
// across every usable node; sends go to the preferred node only.
package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/egaotan/solana-gold/config"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

type Backend struct {
	logger     zerolog.Logger
	nodes      []*config.Node
	clients    []*rpc.Client
	preferred  uint32
	commitment rpc.CommitmentType
	wg         sync.WaitGroup
	lock       sync.Mutex
	subs       []*subscription
}

func NewBackend(nodes []*config.Node, logger zerolog.Logger) (*Backend, error) {
	usable := make([]*config.Node, 0, len(nodes))
	clients := make([]*rpc.Client, 0, len(nodes))
	for _, node := range nodes {
		if node == nil || !node.Usable || node.Rpc == "" {
			continue
		}
		usable = append(usable, node)
		clients = append(clients, rpc.New(node.Rpc))
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no usable rpc node")
	}
	return &Backend{
		logger:     logger.With().Str("component", config.BackendLog).Logger(),
		nodes:      usable,
		clients:    clients,
		commitment: rpc.CommitmentConfirmed,
		subs:       make([]*subscription, 0),
	}, nil
}

// Prefer makes node index the first one tried, e.g. after latency detection.
func (backend *Backend) Prefer(index int) {
	if index < 0 || index >= len(backend.clients) {
		return
	}
	atomic.StoreUint32(&backend.preferred, uint32(index))
	backend.logger.Info().Str("rpc", backend.nodes[index].Rpc).Msg("preferred node")
}

func (backend *Backend) Nodes() []*config.Node {
	return backend.nodes
}

func (backend *Backend) Commitment() rpc.CommitmentType {
	return backend.commitment
}

func (backend *Backend) preferredClient() *rpc.Client {
	return backend.clients[atomic.LoadUint32(&backend.preferred)]
}

// executeWithFailover runs fn against each node starting with the preferred
// one until it succeeds. stop reports errors that are answers, not failures.
func (backend *Backend) executeWithFailover(ctx context.Context, operation string, fn func(*rpc.Client) error, stop func(error) bool) error {
	start := int(atomic.LoadUint32(&backend.preferred))
	var lastErr error
	for attempt := 0; attempt < len(backend.clients); attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		index := (start + attempt) % len(backend.clients)
		err := fn(backend.clients[index])
		if err == nil {
			return nil
		}
		if stop != nil && stop(err) {
			return err
		}
		lastErr = err
		backend.logger.Warn().
			Str("operation", operation).
			Str("rpc", backend.nodes[index].Rpc).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next node")
	}
	return fmt.Errorf("%s failed on all %d nodes: %w", operation, len(backend.clients), lastErr)
}

// Stop closes every websocket subscription and waits for their receivers.
func (backend *Backend) Stop() {
	backend.lock.Lock()
	subs := backend.subs
	backend.subs = nil
	backend.lock.Unlock()
	for _, sub := range subs {
		sub.close()
	}
	backend.wg.Wait()
}
