// Package session holds the connected wallet and the cluster it talks to.
// A session is created on connect and discarded on disconnect; requests and
// reads take it explicitly.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/egaotan/solana-gold/cluster"
	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

type Session struct {
	id          uuid.UUID
	cluster     cluster.Name
	wallet      wallet.Wallet
	owner       solana.PublicKey
	connectedAt time.Time
}

func (s *Session) ID() string {
	return s.id.String()
}

func (s *Session) Cluster() cluster.Name {
	return s.cluster
}

func (s *Session) Wallet() wallet.Wallet {
	return s.wallet
}

// Owner is the address the session connected with. It stays set after the
// wallet disconnects.
func (s *Session) Owner() solana.PublicKey {
	if s == nil {
		return solana.PublicKey{}
	}
	return s.owner
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// ActiveAddress is safe on a nil session so callers can pass whatever the
// manager currently holds.
func (s *Session) ActiveAddress() (solana.PublicKey, bool) {
	if s == nil || s.wallet == nil || !s.wallet.IsConnected() {
		return solana.PublicKey{}, false
	}
	return s.wallet.ActiveAddress()
}

// Connector is implemented by wallets that track their own connection.
type Connector interface {
	Connect()
	Disconnect()
}

type Listener func(s *Session)

type Manager struct {
	cluster      cluster.Name
	lock         sync.RWMutex
	current      *Session
	onConnect    []Listener
	onDisconnect []Listener
}

func NewManager(name cluster.Name) *Manager {
	return &Manager{
		cluster: name,
	}
}

func (m *Manager) OnConnect(l Listener) {
	m.lock.Lock()
	m.onConnect = append(m.onConnect, l)
	m.lock.Unlock()
}

func (m *Manager) OnDisconnect(l Listener) {
	m.lock.Lock()
	m.onDisconnect = append(m.onDisconnect, l)
	m.lock.Unlock()
}

// Connect replaces any current session with a new one for w.
func (m *Manager) Connect(w wallet.Wallet) (*Session, error) {
	if w == nil {
		return nil, errs.ErrWalletNotConnected
	}
	if c, ok := w.(Connector); ok {
		c.Connect()
	}
	owner, ok := w.ActiveAddress()
	if !ok {
		return nil, errs.ErrWalletNotConnected
	}
	s := &Session{
		id:          uuid.New(),
		cluster:     m.cluster,
		wallet:      w,
		owner:       owner,
		connectedAt: time.Now(),
	}
	m.Disconnect()
	m.lock.Lock()
	m.current = s
	listeners := append([]Listener(nil), m.onConnect...)
	m.lock.Unlock()
	for _, l := range listeners {
		l(s)
	}
	return s, nil
}

func (m *Manager) Disconnect() {
	m.lock.Lock()
	s := m.current
	m.current = nil
	listeners := append([]Listener(nil), m.onDisconnect...)
	m.lock.Unlock()
	if s == nil {
		return
	}
	if c, ok := s.wallet.(Connector); ok {
		c.Disconnect()
	}
	for _, l := range listeners {
		l(s)
	}
}

// Current returns nil when no wallet is connected.
func (m *Manager) Current() *Session {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.current
}

func (m *Manager) ActiveAddress() (solana.PublicKey, bool) {
	return m.Current().ActiveAddress()
}

// SignAndSubmit hands req to the wallet of this session, even when another
// session has replaced it since the request was built.
func (s *Session) SignAndSubmit(ctx context.Context, req *gold.Request) (solana.Signature, error) {
	if s == nil || s.wallet == nil {
		return solana.Signature{}, errs.New(errs.KindSignerUnavailable, "no wallet connected")
	}
	return s.wallet.SignAndSubmit(ctx, req)
}
