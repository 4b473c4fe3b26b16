// Package wallet models the connection to a user-controlled signing
// authority. The provider is an injected capability so the core never touches
// runtime globals and stays testable with a substitute implementation.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrWalletUnavailable indicates no compatible signing provider is present.
	ErrWalletUnavailable = errors.New("wallet unavailable")
	// ErrConnectionRejected indicates the user declined the connection.
	ErrConnectionRejected = errors.New("wallet connection rejected")
)

// EventKind enumerates the asynchronous notifications a provider can emit.
type EventKind int

const (
	// EventAccountsChanged signals the active account set changed.
	EventAccountsChanged EventKind = iota
	// EventChainChanged signals the provider switched chains.
	EventChainChanged
	// EventDisconnected signals the provider revoked the connection.
	EventDisconnected
)

// Event is an asynchronous notification from the provider environment.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  *big.Int
}

// Signer is the opaque capability that authorizes transactions for one
// account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Provider abstracts the external wallet environment.
type Provider interface {
	// RequestAccounts asks the provider for the authorized account list and
	// may trigger an external user-facing prompt.
	RequestAccounts(ctx context.Context) ([]string, error)
	// Signer returns the signing capability for one authorized account.
	Signer(ctx context.Context, account string) (Signer, error)
	// ChainID reports the chain the provider is connected to.
	ChainID(ctx context.Context) (*big.Int, error)
	// Events delivers account/chain-change notifications. The channel is
	// closed when the provider shuts down.
	Events() <-chan Event
}

// Session is an established connection: an account, the chain it lives on,
// and the capability to sign for it. At most one session is active at a time.
type Session struct {
	Account common.Address
	ChainID *big.Int
	Signer  Signer
}

// Connector owns the current session and applies provider events to it.
type Connector struct {
	provider Provider

	mu      sync.Mutex
	session *Session
}

// NewConnector wraps a provider. No connection is attempted until Connect.
func NewConnector(provider Provider) *Connector {
	return &Connector{provider: provider}
}

// Connect establishes a session. It is idempotent: while already connected it
// returns the existing session without re-prompting.
func (c *Connector) Connect(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}
	if c.provider == nil {
		return nil, ErrWalletUnavailable
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		if errors.Is(err, ErrWalletUnavailable) || errors.Is(err, ErrConnectionRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionRejected, err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no accounts authorized", ErrConnectionRejected)
	}

	signer, err := c.provider.Signer(ctx, accounts[0])
	if err != nil {
		return nil, fmt.Errorf("get signer: %w", err)
	}

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	c.session = &Session{
		Account: common.HexToAddress(accounts[0]),
		ChainID: chainID,
		Signer:  signer,
	}
	return c.session, nil
}

// Session returns the active session, or nil when disconnected.
func (c *Connector) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Disconnect drops the active session.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

// Watch consumes provider events until the channel closes or ctx is done,
// applying each one to the session before invoking onEvent. Account or chain
// changes destroy the current session; the environment can revoke it at any
// time.
func (c *Connector) Watch(ctx context.Context, onEvent func(Event)) {
	if c.provider == nil {
		return
	}
	events := c.provider.Events()
	if events == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.apply(ev)
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}
}

func (c *Connector) apply(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case EventDisconnected:
		c.session = nil
	case EventAccountsChanged:
		// The old session is void either way; a fresh Connect is required to
		// sign for the new account.
		c.session = nil
	case EventChainChanged:
		c.session = nil
	}
}
