package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrCatalogUnavailable indicates the token registry could not be fetched or
// returned malformed data. The catalog stays empty; callers must treat "no
// tokens" as a displayable state, not a crash.
var ErrCatalogUnavailable = errors.New("token catalog unavailable")

// DefaultMaxTokens caps how many registry entries the catalog keeps.
const DefaultMaxTokens = 20

// Catalog loads and caches the set of tradable tokens from an external
// registry, filtered to a single chain.
type Catalog struct {
	url       string
	chainID   int64
	maxTokens int
	client    *http.Client
	tokens    []Token
}

// tokenList mirrors the registry document shape.
type tokenList struct {
	Name   string  `json:"name"`
	Tokens []Token `json:"tokens"`
}

// NewCatalog creates a catalog backed by the registry at url, keeping only
// tokens on chainID. maxTokens <= 0 selects DefaultMaxTokens.
func NewCatalog(url string, chainID int64, maxTokens int) *Catalog {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Catalog{
		url:       url,
		chainID:   chainID,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Load fetches the registry and replaces the cached token set. On failure the
// catalog remains empty and the error wraps ErrCatalogUnavailable.
func (c *Catalog) Load(ctx context.Context) ([]Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrCatalogUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch registry: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: registry returned status code %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var list tokenList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decode registry: %v", ErrCatalogUnavailable, err)
	}

	filtered := make([]Token, 0, c.maxTokens)
	for _, t := range list.Tokens {
		if t.ChainID != c.chainID || t.Address == "" {
			continue
		}
		filtered = append(filtered, t)
		if len(filtered) == c.maxTokens {
			break
		}
	}

	c.tokens = filtered
	return c.tokens, nil
}

// Tokens returns the cached token set in registry order.
func (c *Catalog) Tokens() []Token {
	return c.tokens
}

// DefaultPair returns the first two tokens in registry order as the
// provisional from/to selection. ok is false when fewer than two tokens are
// loaded.
func (c *Catalog) DefaultPair() (from, to Token, ok bool) {
	if len(c.tokens) < 2 {
		return Token{}, Token{}, false
	}
	return c.tokens[0], c.tokens[1], true
}

// FindBySymbol looks a token up by its symbol, trying an exact match before a
// partial one.
func (c *Catalog) FindBySymbol(symbol string) (Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, t := range c.tokens {
		if strings.ToUpper(t.Symbol) == symbol {
			return t, nil
		}
	}
	for _, t := range c.tokens {
		if strings.Contains(strings.ToUpper(t.Symbol), symbol) {
			return t, nil
		}
	}

	return Token{}, fmt.Errorf("token '%s' not found", symbol)
}

// FindByAddress looks a token up by its contract address.
func (c *Catalog) FindByAddress(address string) (Token, error) {
	for _, t := range c.tokens {
		if strings.EqualFold(t.Address, address) {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("token with address '%s' not found", address)
}
