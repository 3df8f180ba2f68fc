package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"lp-helper/pkg/logger"
	"lp-helper/pkg/planner"
)

// Helper contract ABI, the two entry points the planner targets
const helperABI = `[
{"inputs":[{"name":"token","type":"address"},{"name":"amountToken","type":"uint256"},{"name":"minLiquidityOut","type":"uint256"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapAndAddLiquidityEthAndToken","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"amountA","type":"uint256"},{"name":"amountB","type":"uint256"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapAndAddLiquidityTokenAndToken","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Gateway runs transaction plans against the helper contract
type Gateway struct {
	session *Session
	helper  common.Address
	abi     abi.ABI
	log     zerolog.Logger
}

// NewGateway creates a gateway for the helper deployed at helper
func NewGateway(session *Session, helper common.Address) (*Gateway, error) {
	if helper == (common.Address{}) {
		return nil, fmt.Errorf("helper contract address not configured")
	}
	parsed, err := abi.JSON(strings.NewReader(helperABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse helper ABI: %w", err)
	}
	return &Gateway{
		session: session,
		helper:  helper,
		abi:     parsed,
		log:     logger.New("gateway"),
	}, nil
}

// Spender is the address token approvals must be granted to
func (g *Gateway) Spender() common.Address {
	return g.helper
}

func (g *Gateway) request(plan *planner.Plan) (TxRequest, error) {
	data, err := g.abi.Pack(plan.Method, plan.Args...)
	if err != nil {
		return TxRequest{}, fmt.Errorf("failed to pack %s: %w", plan.Method, err)
	}
	return TxRequest{To: g.helper, Data: data, Value: plan.Value}, nil
}

// EstimateGas simulates plan and returns its gas estimate
func (g *Gateway) EstimateGas(ctx context.Context, plan *planner.Plan) (uint64, error) {
	req, err := g.request(plan)
	if err != nil {
		return 0, err
	}
	gas, err := g.session.Estimate(ctx, req)
	if err != nil {
		return 0, err
	}
	g.log.Debug().Str("method", plan.Method).Uint64("gas", gas).Msg("estimated gas")
	return gas, nil
}

// Execute signs and sends plan with the given gas limit
func (g *Gateway) Execute(ctx context.Context, plan *planner.Plan, gasLimit uint64) (common.Hash, error) {
	req, err := g.request(plan)
	if err != nil {
		return common.Hash{}, err
	}
	req.Gas = gasLimit
	hash, err := g.session.Send(ctx, req)
	if err != nil {
		return common.Hash{}, err
	}
	g.log.Info().Str("method", plan.Method).Str("tx", hash.Hex()).Msg("transaction sent")
	return hash, nil
}
