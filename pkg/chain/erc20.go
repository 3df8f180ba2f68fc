package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"lp-helper/pkg/types"
)

const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

// approveGasFallback is used when an approve cannot be estimated
const approveGasFallback = uint64(100000)

// ERC20 reads and approves tokens through a session
type ERC20 struct {
	session *Session
	abi     abi.ABI
}

// NewERC20 binds the token ABI to session
func NewERC20(session *Session) (*ERC20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	return &ERC20{session: session, abi: parsed}, nil
}

func (e *ERC20) call(ctx context.Context, token common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := e.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s data: %w", method, err)
	}
	result, err := e.session.Backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if err := e.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

// BalanceOf returns owner's raw token balance
func (e *ERC20) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := e.call(ctx, token, "balanceOf", &balance, owner); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance returns how much spender may move on owner's behalf
func (e *ERC20) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := e.call(ctx, token, "allowance", &allowance, owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

// Decimals returns the token's precision
func (e *ERC20) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	if err := e.call(ctx, token, "decimals", &decimals); err != nil {
		return 0, err
	}
	return decimals, nil
}

// Symbol returns the token's ticker
func (e *ERC20) Symbol(ctx context.Context, token common.Address) (string, error) {
	var symbol string
	if err := e.call(ctx, token, "symbol", &symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

// Approve grants spender an allowance of amount. The estimate gets the same
// safety margin as deposits.
func (e *ERC20) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := e.abi.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack approve data: %w", err)
	}
	req := TxRequest{To: token, Data: data}
	gas, err := e.session.Estimate(ctx, req)
	if err != nil {
		gas = approveGasFallback
	}
	req.Gas = gas * 120 / 100
	return e.session.Send(ctx, req)
}

// Receipt returns the receipt for hash, nil while pending
func (e *ERC20) Receipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	return e.session.Receipt(ctx, hash)
}

// Owner is the session account
func (e *ERC20) Owner() common.Address {
	return e.session.Account
}

// LoadAsset resolves a command line identifier into an asset, reading
// symbol and decimals from the token contract
func (e *ERC20) LoadAsset(ctx context.Context, id, nativeSymbol string, nativeDecimals uint8) (types.Asset, error) {
	chainID := e.session.ChainID.Int64()
	native, address, err := types.ParseAssetID(id, nativeSymbol)
	if err != nil {
		return types.Asset{}, err
	}
	if native {
		return types.NewNative(chainID, nativeSymbol, nativeDecimals), nil
	}

	decimals, err := e.Decimals(ctx, address)
	if err != nil {
		return types.Asset{}, fmt.Errorf("failed to load token %s: %w", address.Hex(), err)
	}
	symbol, err := e.Symbol(ctx, address)
	if err != nil {
		// some tokens return bytes32 symbols
		symbol = address.Hex()[:8]
	}
	return types.NewToken(chainID, address, symbol, decimals), nil
}

// Balance returns the session account's balance of asset
func (e *ERC20) Balance(ctx context.Context, asset types.Asset) (types.AssetAmount, error) {
	owner := e.session.Account
	if asset.IsNative() {
		raw, err := e.session.Backend.BalanceAt(ctx, owner, nil)
		if err != nil {
			return types.AssetAmount{}, fmt.Errorf("failed to get balance: %w", err)
		}
		return types.NewAmount(asset, raw), nil
	}
	raw, err := e.BalanceOf(ctx, asset.Address, owner)
	if err != nil {
		return types.AssetAmount{}, fmt.Errorf("failed to get token balance: %w", err)
	}
	return types.NewAmount(asset, raw), nil
}
