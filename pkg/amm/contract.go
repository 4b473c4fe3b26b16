// Package amm binds the deployed two-asset pool contract: a read-only quote
// call and a state-changing swap. Amounts crossing this boundary are always
// integers in the token's smallest unit.
package amm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"amm-swap/pkg/swap"
	"amm-swap/pkg/wallet"
)

// simpleAmmABI covers the two pool operations this client uses. The swap
// reverts on-chain when the realized output falls below minAmountOut.
const simpleAmmABI = `[
	{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"aToB","type":"bool"}],"name":"getAmountOut","outputs":[{"name":"amountOut","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"minAmountOut","type":"uint256"},{"name":"aToB","type":"bool"}],"name":"swap","outputs":[],"type":"function"}
]`

const receiptPollInterval = 2 * time.Second

// Contract is a client for one deployed pool.
type Contract struct {
	address common.Address
	abi     abi.ABI
	client  *ethclient.Client
}

// Dial connects to the RPC endpoint and binds the pool at address.
func Dial(rpcURL, address string) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid AMM address: %s", address)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	return NewContract(common.HexToAddress(address), client)
}

// NewContract binds the pool at address over an existing client.
func NewContract(address common.Address, client *ethclient.Client) (*Contract, error) {
	parsedABI, err := abi.JSON(strings.NewReader(simpleAmmABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse AMM ABI: %w", err)
	}

	return &Contract{address: address, abi: parsedABI, client: client}, nil
}

// GetAmountOut asks the pool how much output amountIn buys in the given
// direction. Read-only; no signer required.
func (c *Contract) GetAmountOut(ctx context.Context, amountIn *big.Int, aToB bool) (*big.Int, error) {
	data, err := c.abi.Pack("getAmountOut", amountIn, aToB)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getAmountOut data: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getAmountOut: %w", err)
	}

	outputs, err := c.abi.Unpack("getAmountOut", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getAmountOut result: %w", err)
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected getAmountOut output count: %d", len(outputs))
	}

	amountOut, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountOut output type %T", outputs[0])
	}
	return amountOut, nil
}

// Swap submits the trade through the session's signing capability and returns
// the transaction hash as soon as the network accepts it.
func (c *Contract) Swap(ctx context.Context, amountIn, minAmountOut *big.Int, aToB bool, session *wallet.Session) (common.Hash, error) {
	if session == nil || session.Signer == nil {
		return common.Hash{}, swap.ErrNoSession
	}

	data, err := c.abi.Pack("swap", amountIn, minAmountOut, aToB)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack swap data: %w", err)
	}

	from := session.Signer.Address()

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to get nonce: %v", swap.ErrSubmissionFailed, err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to get gas price: %v", swap.ErrSubmissionFailed, err)
	}

	gasLimit := uint64(200000)
	msg := ethereum.CallMsg{From: from, To: &c.address, Data: data}
	if estimated, err := c.client.EstimateGas(ctx, msg); err == nil {
		gasLimit = estimated * 120 / 100 // 20% buffer
	}

	tx := types.NewTransaction(nonce, c.address, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := session.Signer.SignTx(tx, session.ChainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", swap.ErrSubmissionRejected, err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", swap.ErrSubmissionFailed, err)
	}

	return signedTx.Hash(), nil
}

// WaitMined polls for the transaction receipt until the ledger reports it or
// ctx expires.
func (c *Contract) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// TransactionInfo retrieves display details for a submitted transaction.
func (c *Contract) TransactionInfo(ctx context.Context, txHash string) (map[string]interface{}, error) {
	hash := common.HexToHash(txHash)

	tx, isPending, err := c.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil && !isPending {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	info := map[string]interface{}{
		"hash":      tx.Hash().Hex(),
		"nonce":     tx.Nonce(),
		"gas_price": tx.GasPrice().String(),
		"gas_limit": tx.Gas(),
		"pending":   isPending,
	}
	if tx.To() != nil {
		info["to"] = tx.To().Hex()
	}
	if receipt != nil {
		info["block_number"] = receipt.BlockNumber.Uint64()
		info["gas_used"] = receipt.GasUsed
		info["status"] = receipt.Status
	}

	return info, nil
}

// Address returns the bound pool address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Close closes the underlying RPC client.
func (c *Contract) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
