package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"lp-helper/config"
	"lp-helper/pkg/approval"
	"lp-helper/pkg/chain"
	"lp-helper/pkg/ledger"
	"lp-helper/pkg/reserves"
	"lp-helper/pkg/types"
)

// environment is everything a command needs to talk to the chain
type environment struct {
	cfg     *config.Config
	client  *ethclient.Client
	session *chain.Session
	tokens  *chain.ERC20
	calc    *reserves.V2Calculator

	// set only when a signer is configured
	gateway *chain.Gateway
	gate    *approval.Gate
}

// openEnvironment dials the RPC endpoint and wires the chain components.
// With withSigner the signer, helper gateway and approval gate are set up too.
func openEnvironment(ctx context.Context, cfg *config.Config, withSigner bool) (*environment, error) {
	if err := cfg.RequireChain(); err != nil {
		return nil, err
	}
	if withSigner {
		if err := cfg.RequireSigner(); err != nil {
			return nil, err
		}
	}

	client, err := chain.Dial(ctx, cfg.RPCURL, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	var signer chain.Signer
	if withSigner {
		signer, err = newSigner(cfg)
		if err != nil {
			client.Close()
			return nil, err
		}
	}

	session := chain.NewSession(client, cfg.ChainID, signer)
	if signer == nil && cfg.Account != "" {
		session.Account = common.HexToAddress(cfg.Account)
	}

	tokens, err := chain.NewERC20(session)
	if err != nil {
		client.Close()
		return nil, err
	}
	calc, err := reserves.NewV2Calculator(client,
		common.HexToAddress(cfg.FactoryAddress), common.HexToAddress(cfg.WrappedNativeAddress))
	if err != nil {
		client.Close()
		return nil, err
	}

	env := &environment{
		cfg:     cfg,
		client:  client,
		session: session,
		tokens:  tokens,
		calc:    calc,
	}

	if withSigner {
		env.gateway, err = chain.NewGateway(session, common.HexToAddress(cfg.HelperAddress))
		if err != nil {
			client.Close()
			return nil, err
		}
		tracker := approval.NewERC20Tracker(tokens, cfg.ExactApproval)
		env.gate = approval.NewGate(tracker, env.gateway.Spender())
	}

	return env, nil
}

// Close releases the RPC connection
func (e *environment) Close() {
	e.client.Close()
}

// loadPair resolves both command line asset identifiers
func (e *environment) loadPair(ctx context.Context, idA, idB string) (types.Pair, error) {
	a, err := e.tokens.LoadAsset(ctx, idA, e.cfg.NativeSymbol, e.cfg.NativeDecimals)
	if err != nil {
		return types.Pair{}, err
	}
	b, err := e.tokens.LoadAsset(ctx, idB, e.cfg.NativeSymbol, e.cfg.NativeDecimals)
	if err != nil {
		return types.Pair{}, err
	}
	return types.Pair{A: a, B: b}, nil
}

// balances reads the account balance of both assets. Missing balances are
// left nil, which the resolver reports as a disconnected wallet.
func (e *environment) balances(ctx context.Context, pair types.Pair) (map[types.Field]*types.AssetAmount, error) {
	out := make(map[types.Field]*types.AssetAmount)
	if !e.session.Connected() || !pair.Resolved() {
		return out, nil
	}
	for _, f := range types.Fields {
		bal, err := e.tokens.Balance(ctx, pair.Get(f))
		if err != nil {
			return nil, err
		}
		out[f] = &bal
	}
	return out, nil
}

func openLedger(cfg *config.Config) (*ledger.Ledger, error) {
	l, err := ledger.NewLedger(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return l, nil
}

func newSigner(cfg *config.Config) (chain.Signer, error) {
	switch cfg.Signer {
	case config.SignerExternal:
		var want common.Address
		if cfg.Account != "" {
			want = common.HexToAddress(cfg.Account)
		}
		return chain.NewExternalSigner(cfg.ClefURL, want)
	default:
		var prompt chain.Prompt
		if cfg.SignPrompt {
			prompt = confirmSign(cfg)
		}
		return chain.NewKeySigner(cfg.PrivateKey, prompt)
	}
}

// confirmSign shows a transaction and asks before the local key signs it
func confirmSign(cfg *config.Config) chain.Prompt {
	return func(tx *gethtypes.Transaction) (bool, error) {
		fmt.Println()
		color.Yellow("Sign transaction?")
		if tx.To() != nil {
			fmt.Printf("  To:     %s\n", tx.To().Hex())
		}
		if tx.Value().Sign() > 0 {
			value := decimal.NewFromBigInt(tx.Value(), -int32(cfg.NativeDecimals))
			fmt.Printf("  Value:  %s %s\n", value.String(), cfg.NativeSymbol)
		}
		fmt.Printf("  Gas:    %d\n", tx.Gas())
		fmt.Printf("  Nonce:  %d\n", tx.Nonce())
		return askYesNo("Sign and send?"), nil
	}
}

func askYesNo(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
