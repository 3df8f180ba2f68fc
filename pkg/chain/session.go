package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the RPC surface the session needs. *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Session is the wallet and chain context handed explicitly to every
// component that talks to the chain. Signer is nil for read-only sessions.
type Session struct {
	Account common.Address
	ChainID *big.Int
	Backend Backend
	Signer  Signer
}

// Dial connects to rpcURL and checks the node serves chainID
func Dial(ctx context.Context, rpcURL string, chainID int64) (*ethclient.Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID != 0 && remote.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("RPC endpoint serves chain %s, configured chain is %d", remote, chainID)
	}
	return client, nil
}

// NewSession binds a backend and an optional signer. The account is taken
// from the signer when one is given.
func NewSession(backend Backend, chainID int64, signer Signer) *Session {
	s := &Session{
		ChainID: big.NewInt(chainID),
		Backend: backend,
		Signer:  signer,
	}
	if signer != nil {
		s.Account = signer.Address()
	}
	return s
}

// Connected reports whether an account is available
func (s *Session) Connected() bool {
	return s.Account != (common.Address{})
}

// TxRequest is a contract call to sign and send
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
}

func (r TxRequest) callMsg(from common.Address) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  from,
		To:    &r.To,
		Data:  r.Data,
		Value: r.Value,
	}
}

// Estimate simulates req and returns the gas it would use
func (s *Session) Estimate(ctx context.Context, req TxRequest) (uint64, error) {
	gas, err := s.Backend.EstimateGas(ctx, req.callMsg(s.Account))
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// Send signs req with the session signer and broadcasts it. A declined
// signature is returned as is so callers can tell it apart.
func (s *Session) Send(ctx context.Context, req TxRequest) (common.Hash, error) {
	if s.Signer == nil {
		return common.Hash{}, fmt.Errorf("no signer configured")
	}
	if req.Gas == 0 {
		return common.Hash{}, fmt.Errorf("gas limit not set")
	}

	nonce, err := s.Backend.PendingNonceAt(ctx, s.Account)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	tx, err := s.buildTx(ctx, nonce, req.To, value, req.Gas, req.Data)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := s.Signer.SignTx(ctx, tx, s.ChainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.Backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed.Hash(), nil
}

// buildTx prefers EIP-1559 fees and falls back to a legacy gas price
func (s *Session) buildTx(ctx context.Context, nonce uint64, to common.Address, value *big.Int, gas uint64, data []byte) (*gethtypes.Transaction, error) {
	tip, tipErr := s.Backend.SuggestGasTipCap(ctx)
	head, headErr := s.Backend.HeaderByNumber(ctx, nil)
	if tipErr == nil && headErr == nil && head != nil && head.BaseFee != nil {
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)
		return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
			ChainID:   s.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice, err := s.Backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	}), nil
}

// Receipt returns the receipt for hash, or nil while it is still pending
func (s *Session) Receipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	receipt, err := s.Backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt, nil
}
