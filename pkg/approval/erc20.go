package approval

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"lp-helper/pkg/logger"
	"lp-helper/pkg/types"
)

// Allowances is the token access the ERC-20 tracker needs
type Allowances interface {
	Owner() common.Address
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Receipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
}

type allowanceKey struct {
	token   common.Address
	spender common.Address
}

// ERC20Tracker tracks allowances by reading the token contract. An
// approval in flight stays Pending until its receipt is mined.
type ERC20Tracker struct {
	mu      sync.Mutex
	tokens  Allowances
	exact   bool
	pending map[allowanceKey]common.Hash
	log     zerolog.Logger
}

// NewERC20Tracker creates a tracker. With exact set approvals are for the
// required amount only, otherwise for the maximum allowance.
func NewERC20Tracker(tokens Allowances, exact bool) *ERC20Tracker {
	return &ERC20Tracker{
		tokens:  tokens,
		exact:   exact,
		pending: make(map[allowanceKey]common.Hash),
		log:     logger.New("approval"),
	}
}

// Check returns the allowance state of amount for spender
func (t *ERC20Tracker) Check(ctx context.Context, amount types.AssetAmount, spender common.Address) (State, error) {
	if amount.Asset.IsNative() {
		return Approved, nil
	}
	key := allowanceKey{token: amount.Asset.Address, spender: spender}

	t.mu.Lock()
	defer t.mu.Unlock()

	if hash, ok := t.pending[key]; ok {
		receipt, err := t.tokens.Receipt(ctx, hash)
		if err != nil {
			return Pending, err
		}
		if receipt == nil {
			return Pending, nil
		}
		delete(t.pending, key)
		if receipt.Status != gethtypes.ReceiptStatusSuccessful {
			t.log.Warn().
				Str("token", amount.Asset.String()).
				Str("tx", hash.Hex()).
				Msg("approval transaction reverted")
			return NotApproved, nil
		}
		t.log.Info().Str("token", amount.Asset.String()).Str("tx", hash.Hex()).Msg("approval confirmed")
	}

	allowance, err := t.tokens.Allowance(ctx, amount.Asset.Address, t.tokens.Owner(), spender)
	if err != nil {
		return Unknown, fmt.Errorf("failed to read allowance: %w", err)
	}
	if allowance.Cmp(amount.Raw) < 0 {
		return NotApproved, nil
	}
	return Approved, nil
}

// Request sends an approve transaction unless one is already in flight
func (t *ERC20Tracker) Request(ctx context.Context, amount types.AssetAmount, spender common.Address) error {
	if amount.Asset.IsNative() {
		return nil
	}
	key := allowanceKey{token: amount.Asset.Address, spender: spender}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[key]; ok {
		return nil
	}

	value := new(big.Int).Set(math.MaxBig256)
	if t.exact {
		value = amount.Raw
	}
	hash, err := t.tokens.Approve(ctx, amount.Asset.Address, spender, value)
	if err != nil {
		return fmt.Errorf("failed to approve %s: %w", amount.Asset, err)
	}
	t.pending[key] = hash

	t.log.Info().
		Str("token", amount.Asset.String()).
		Str("spender", spender.Hex()).
		Str("tx", hash.Hex()).
		Msg("approval submitted")
	return nil
}
