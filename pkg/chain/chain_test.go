package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/assert"

	"lp-helper/pkg/planner"
	"lp-helper/pkg/types"
)

var (
	helperAddr = common.HexToAddress("0x000000000000000000000000000000000000beef")
	tokenAddr  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

type fakeBackend struct {
	t           *testing.T
	erc20       abi.ABI
	estimate    uint64
	estimateErr error
	baseFee     *big.Int
	calls       []ethereum.CallMsg
	sent        []*gethtypes.Transaction
	receipts    map[common.Hash]*gethtypes.Receipt
	balances    map[common.Address]*big.Int
	allowance   *big.Int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	assert.NoError(t, err)
	return &fakeBackend{
		t:        t,
		erc20:    parsed,
		estimate: 100000,
		baseFee:  big.NewInt(1e9),
		receipts: make(map[common.Hash]*gethtypes.Receipt),
		balances: make(map[common.Address]*big.Int),
	}
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := f.erc20.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(big.NewInt(5000))
	case "allowance":
		return method.Outputs.Pack(f.allowance)
	case "decimals":
		return method.Outputs.Pack(uint8(6))
	case "symbol":
		return method.Outputs.Pack("USDC")
	}
	return nil, fmt.Errorf("unexpected call %s", method.Name)
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.calls = append(f.calls, msg)
	return f.estimate, f.estimateErr
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2e9), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1e8), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if b, ok := f.balances[account]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func newTestSigner(t *testing.T, prompt Prompt) *KeySigner {
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	signer, err := NewKeySigner(hexutil.Encode(crypto.FromECDSA(key)), prompt)
	assert.NoError(t, err)
	return signer
}

func nativePlan() *planner.Plan {
	return &planner.Plan{
		Kind:   planner.NativePlusToken,
		Method: planner.MethodNativePlusToken,
		Args:   []interface{}{tokenAddr, big.NewInt(400), big.NewInt(1), common.HexToAddress("0xaa"), big.NewInt(1700001200)},
		Value:  big.NewInt(1000),
	}
}

func TestGateway_EstimatePacksHelperCall(t *testing.T) {
	backend := newFakeBackend(t)
	session := NewSession(backend, 1, newTestSigner(t, nil))
	gw, err := NewGateway(session, helperAddr)
	assert.NoError(t, err)

	gas, err := gw.EstimateGas(context.Background(), nativePlan())
	assert.NoError(t, err)
	assert.Equal(t, gas, uint64(100000))
	assert.Equal(t, len(backend.calls), 1)

	msg := backend.calls[0]
	assert.Equal(t, *msg.To, helperAddr)
	assert.Equal(t, msg.From, session.Account)
	assert.Equal(t, msg.Value.String(), "1000")
	assert.Equal(t, hexutil.Encode(msg.Data[:4]), hexutil.Encode(gw.abi.Methods[planner.MethodNativePlusToken].ID))
}

func TestGateway_EstimateError(t *testing.T) {
	backend := newFakeBackend(t)
	backend.estimateErr = errors.New("execution reverted")
	gw, err := NewGateway(NewSession(backend, 1, nil), helperAddr)
	assert.NoError(t, err)

	_, err = gw.EstimateGas(context.Background(), nativePlan())
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "execution reverted"))
}

func TestGateway_ExecuteSignsAndSends(t *testing.T) {
	backend := newFakeBackend(t)
	signer := newTestSigner(t, nil)
	session := NewSession(backend, 5, signer)
	gw, err := NewGateway(session, helperAddr)
	assert.NoError(t, err)

	hash, err := gw.Execute(context.Background(), nativePlan(), 110000)
	assert.NoError(t, err)
	assert.Equal(t, len(backend.sent), 1)

	tx := backend.sent[0]
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, tx.Gas(), uint64(110000))
	assert.Equal(t, tx.Value().String(), "1000")
	assert.Equal(t, *tx.To(), helperAddr)
	assert.Equal(t, tx.Type(), uint8(gethtypes.DynamicFeeTxType))

	from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(5)), tx)
	assert.NoError(t, err)
	assert.Equal(t, from, signer.Address())
}

func TestSession_LegacyFeesWithoutBaseFee(t *testing.T) {
	backend := newFakeBackend(t)
	backend.baseFee = nil
	session := NewSession(backend, 1, newTestSigner(t, nil))

	_, err := session.Send(context.Background(), TxRequest{To: helperAddr, Gas: 21000})
	assert.NoError(t, err)
	assert.Equal(t, backend.sent[0].Type(), uint8(gethtypes.LegacyTxType))
	assert.Equal(t, backend.sent[0].GasPrice().String(), "2000000000")
}

func TestSession_DeclinedPromptSendsNothing(t *testing.T) {
	backend := newFakeBackend(t)
	prompted := 0
	signer := newTestSigner(t, func(*gethtypes.Transaction) (bool, error) {
		prompted++
		return false, nil
	})
	gw, err := NewGateway(NewSession(backend, 1, signer), helperAddr)
	assert.NoError(t, err)

	_, err = gw.Execute(context.Background(), nativePlan(), 110000)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUserRejected))
	assert.True(t, IsUserRejected(err))
	assert.Equal(t, prompted, 1)
	assert.Equal(t, len(backend.sent), 0)
}

func TestSession_ReadOnlyCannotSend(t *testing.T) {
	session := NewSession(newFakeBackend(t), 1, nil)
	assert.False(t, session.Connected())
	_, err := session.Send(context.Background(), TxRequest{To: helperAddr, Gas: 21000})
	assert.Error(t, err)
}

type codedError struct{ code int }

func (e codedError) Error() string  { return "provider error" }
func (e codedError) ErrorCode() int { return e.code }

func TestIsUserRejected(t *testing.T) {
	assert.True(t, IsUserRejected(types.ErrUserRejected))
	assert.True(t, IsUserRejected(fmt.Errorf("failed to sign transaction: %w", codedError{code: 4001})))
	assert.True(t, IsUserRejected(errors.New("Request denied")))
	assert.False(t, IsUserRejected(codedError{code: -32000}))
	assert.False(t, IsUserRejected(errors.New("insufficient funds for gas")))
	assert.False(t, IsUserRejected(nil))
}

func TestSession_ReceiptPending(t *testing.T) {
	backend := newFakeBackend(t)
	session := NewSession(backend, 1, nil)

	receipt, err := session.Receipt(context.Background(), common.HexToHash("0x01"))
	assert.NoError(t, err)
	assert.True(t, receipt == nil)

	backend.receipts[common.HexToHash("0x01")] = &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}
	receipt, err = session.Receipt(context.Background(), common.HexToHash("0x01"))
	assert.NoError(t, err)
	assert.Equal(t, receipt.Status, gethtypes.ReceiptStatusSuccessful)
}

func TestERC20_LoadAssetAndBalance(t *testing.T) {
	backend := newFakeBackend(t)
	signer := newTestSigner(t, nil)
	backend.balances[signer.Address()] = big.NewInt(42)
	tokens, err := NewERC20(NewSession(backend, 1, signer))
	assert.NoError(t, err)
	ctx := context.Background()

	native, err := tokens.LoadAsset(ctx, "eth", "ETH", 18)
	assert.NoError(t, err)
	assert.True(t, native.IsNative())
	assert.Equal(t, native.Decimals, uint8(18))

	token, err := tokens.LoadAsset(ctx, tokenAddr.Hex(), "ETH", 18)
	assert.NoError(t, err)
	assert.Equal(t, token.Symbol, "USDC")
	assert.Equal(t, token.Decimals, uint8(6))
	assert.Equal(t, token.Address, tokenAddr)

	bal, err := tokens.Balance(ctx, native)
	assert.NoError(t, err)
	assert.Equal(t, bal.Raw.String(), "42")

	bal, err = tokens.Balance(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, bal.ToExact(), "0.005")

	_, err = tokens.LoadAsset(ctx, "not-an-asset", "ETH", 18)
	assert.Error(t, err)
}

func TestERC20_AllowanceAndApprove(t *testing.T) {
	backend := newFakeBackend(t)
	backend.allowance = big.NewInt(77)
	tokens, err := NewERC20(NewSession(backend, 1, newTestSigner(t, nil)))
	assert.NoError(t, err)
	ctx := context.Background()

	allowance, err := tokens.Allowance(ctx, tokenAddr, tokens.Owner(), helperAddr)
	assert.NoError(t, err)
	assert.Equal(t, allowance.String(), "77")

	hash, err := tokens.Approve(ctx, tokenAddr, helperAddr, big.NewInt(1000))
	assert.NoError(t, err)
	assert.Equal(t, len(backend.sent), 1)
	assert.Equal(t, backend.sent[0].Hash(), hash)
	assert.Equal(t, *backend.sent[0].To(), tokenAddr)
	assert.Equal(t, backend.sent[0].Gas(), uint64(120000))
}
