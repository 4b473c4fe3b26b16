package amm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"amm-swap/pkg/swap"
)

func TestNewContractParsesABI(t *testing.T) {
	contract, err := NewContract(common.HexToAddress("0x1111111111111111111111111111111111111111"), nil)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), contract.Address())

	_, ok := contract.abi.Methods["getAmountOut"]
	require.True(t, ok)
	_, ok = contract.abi.Methods["swap"]
	require.True(t, ok)
}

func TestDialRejectsMalformedAddress(t *testing.T) {
	_, err := Dial("http://127.0.0.1:1", "not-an-address")
	require.Error(t, err)
}

func TestGetAmountOutCalldata(t *testing.T) {
	contract, err := NewContract(common.Address{}, nil)
	require.NoError(t, err)

	data, err := contract.abi.Pack("getAmountOut", big.NewInt(2500000000), true)
	require.NoError(t, err)

	// 4-byte selector plus two 32-byte words.
	require.Len(t, data, 4+64)
	selector := crypto.Keccak256([]byte("getAmountOut(uint256,bool)"))[:4]
	require.Equal(t, selector, data[:4])

	require.Equal(t, big.NewInt(2500000000), new(big.Int).SetBytes(data[4:36]))
	require.Equal(t, byte(1), data[67], "direction flag encodes in the last byte of the second word")
}

func TestSwapCalldata(t *testing.T) {
	contract, err := NewContract(common.Address{}, nil)
	require.NoError(t, err)

	data, err := contract.abi.Pack("swap", big.NewInt(4000000), big.NewInt(3980000), false)
	require.NoError(t, err)

	require.Len(t, data, 4+96)
	selector := crypto.Keccak256([]byte("swap(uint256,uint256,bool)"))[:4]
	require.Equal(t, selector, data[:4])

	require.Equal(t, big.NewInt(4000000), new(big.Int).SetBytes(data[4:36]))
	require.Equal(t, big.NewInt(3980000), new(big.Int).SetBytes(data[36:68]))
	require.Equal(t, byte(0), data[99])
}

func TestSwapRequiresSession(t *testing.T) {
	contract, err := NewContract(common.Address{}, nil)
	require.NoError(t, err)

	_, err = contract.Swap(context.Background(), big.NewInt(1), big.NewInt(1), true, nil)
	require.ErrorIs(t, err, swap.ErrNoSession)
}
