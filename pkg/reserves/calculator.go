package reserves

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"lp-helper/pkg/logger"
	"lp-helper/pkg/types"
)

const pairABI = `[
{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"type":"function"},
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"},
{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// ContractCaller is the read-only slice of an RPC client the calculator needs
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// V2Calculator reads pool state from a Uniswap V2 style factory and pair
type V2Calculator struct {
	caller        ContractCaller
	factory       common.Address
	wrappedNative common.Address
	abi           abi.ABI
	log           zerolog.Logger
}

// NewV2Calculator creates a calculator for the given factory. The native
// coin is looked up through its wrapped token.
func NewV2Calculator(caller ContractCaller, factory, wrappedNative common.Address) (*V2Calculator, error) {
	parsed, err := abi.JSON(strings.NewReader(pairABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}
	return &V2Calculator{
		caller:        caller,
		factory:       factory,
		wrappedNative: wrappedNative,
		abi:           parsed,
		log:           logger.New("reserves"),
	}, nil
}

// Derive returns the pool state for a and b
func (c *V2Calculator) Derive(ctx context.Context, a, b types.Asset) (*PairInfo, error) {
	info := &PairInfo{
		State:    types.PairInvalid,
		Pair:     types.Pair{A: a, B: b},
		ReserveA: types.ZeroAmount(a),
		ReserveB: types.ZeroAmount(b),
	}
	if !info.Pair.Resolved() || a.ChainID != b.ChainID {
		return info, nil
	}

	tokenA, tokenB := c.wrapped(a), c.wrapped(b)
	if tokenA == tokenB {
		return info, nil
	}

	var pairAddr common.Address
	if err := c.call(ctx, c.factory, "getPair", &pairAddr, tokenA, tokenB); err != nil {
		return nil, err
	}
	if pairAddr == (common.Address{}) {
		info.State = types.PairDoesNotExist
		return info, nil
	}
	info.Address = pairAddr.Hex()

	var token0 common.Address
	if err := c.call(ctx, pairAddr, "token0", &token0); err != nil {
		return nil, err
	}

	data, err := c.abi.Pack("getReserves")
	if err != nil {
		return nil, fmt.Errorf("failed to pack getReserves: %w", err)
	}
	result, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &pairAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getReserves: %w", err)
	}
	out, err := c.abi.Unpack("getReserves", result)
	if err != nil || len(out) < 2 {
		return nil, fmt.Errorf("failed to unpack getReserves: %v", err)
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("unexpected getReserves output types")
	}

	var supply *big.Int
	if err := c.call(ctx, pairAddr, "totalSupply", &supply); err != nil {
		return nil, err
	}

	if token0 == tokenA {
		info.ReserveA = types.NewAmount(a, reserve0)
		info.ReserveB = types.NewAmount(b, reserve1)
	} else {
		info.ReserveA = types.NewAmount(a, reserve1)
		info.ReserveB = types.NewAmount(b, reserve0)
	}
	info.TotalSupply = supply
	info.State = types.PairExists

	c.log.Debug().
		Str("pair", info.Address).
		Str("reserve_a", info.ReserveA.ToExact()).
		Str("reserve_b", info.ReserveB.ToExact()).
		Msg("loaded pool reserves")

	return info, nil
}

func (c *V2Calculator) wrapped(asset types.Asset) common.Address {
	if asset.IsNative() {
		return c.wrappedNative
	}
	return asset.Address
}

func (c *V2Calculator) call(ctx context.Context, to common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if err := c.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}
