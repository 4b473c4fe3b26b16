package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyProvider is a Provider backed by a locally configured private key. It
// never prompts: the single derived account is always authorized.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	events  chan Event
}

// NewKeyProvider parses a hex-encoded private key and binds it to a chain.
func NewKeyProvider(hexKey string, chainID int64) (*KeyProvider, error) {
	if strings.TrimSpace(hexKey) == "" {
		return nil, fmt.Errorf("%w: no private key configured", ErrWalletUnavailable)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &KeyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
		chainID: big.NewInt(chainID),
		events:  make(chan Event, 1),
	}, nil
}

// RequestAccounts returns the single derived account.
func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{p.address.Hex()}, nil
}

// Signer returns the key-backed signing capability for the derived account.
func (p *KeyProvider) Signer(ctx context.Context, account string) (Signer, error) {
	if !strings.EqualFold(account, p.address.Hex()) {
		return nil, fmt.Errorf("unknown account: %s", account)
	}
	return &keySigner{key: p.key, address: p.address}, nil
}

// ChainID reports the configured chain.
func (p *KeyProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(p.chainID), nil
}

// Events returns the notification channel. A key-backed provider emits no
// spontaneous events; Close terminates the stream.
func (p *KeyProvider) Events() <-chan Event {
	return p.events
}

// Close ends the event stream.
func (p *KeyProvider) Close() {
	close(p.events)
}

type keySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func (s *keySigner) Address() common.Address {
	return s.address
}

func (s *keySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}
