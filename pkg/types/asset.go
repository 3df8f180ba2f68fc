package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKind tells the chain's native coin apart from contract tokens
type AssetKind string

const (
	KindNative AssetKind = "native"
	KindToken  AssetKind = "token"
)

// NativeID is the identifier accepted on the command line for the native coin
const NativeID = "ETH"

// Asset identifies a fungible value unit that can be deposited into a pool
type Asset struct {
	Kind     AssetKind      `json:"kind"`
	Address  common.Address `json:"address,omitempty"` // zero for the native coin
	ChainID  int64          `json:"chain_id"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// NewNative returns the native coin sentinel for a chain
func NewNative(chainID int64, symbol string, decimals uint8) Asset {
	return Asset{
		Kind:     KindNative,
		ChainID:  chainID,
		Symbol:   symbol,
		Decimals: decimals,
	}
}

// NewToken returns a contract-backed token
func NewToken(chainID int64, address common.Address, symbol string, decimals uint8) Asset {
	return Asset{
		Kind:     KindToken,
		Address:  address,
		ChainID:  chainID,
		Symbol:   symbol,
		Decimals: decimals,
	}
}

// IsNative returns true for the native coin sentinel
func (a Asset) IsNative() bool {
	return a.Kind == KindNative
}

// IsZero returns true for an unresolved (never selected) asset
func (a Asset) IsZero() bool {
	return a.Kind == ""
}

// Equals compares kind and, for tokens, address and chain. Symbol and
// decimals are metadata and do not take part.
func (a Asset) Equals(other Asset) bool {
	if a.Kind != other.Kind {
		return false
	}
	if a.Kind == KindNative {
		return a.ChainID == other.ChainID
	}
	return a.Address == other.Address && a.ChainID == other.ChainID
}

// ID returns the identifier used on the command line and in ledger entries
func (a Asset) ID() string {
	if a.IsNative() {
		return NativeID
	}
	return a.Address.Hex()
}

func (a Asset) String() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	return a.ID()
}

// ParseAssetID splits a command line identifier into either the native
// sentinel or a token address. Symbols other than the native one are not
// resolved here.
func ParseAssetID(id string, nativeSymbol string) (native bool, address common.Address, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, common.Address{}, fmt.Errorf("asset identifier is empty")
	}
	if strings.EqualFold(id, NativeID) || (nativeSymbol != "" && strings.EqualFold(id, nativeSymbol)) {
		return true, common.Address{}, nil
	}
	if !common.IsHexAddress(id) {
		return false, common.Address{}, fmt.Errorf("invalid asset identifier: %s (expected %s or a token address)", id, NativeID)
	}
	return false, common.HexToAddress(id), nil
}
