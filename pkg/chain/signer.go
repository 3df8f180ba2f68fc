package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"lp-helper/pkg/types"
)

// codeUserRejected is the EIP-1193 code wallets return when the user
// declines a request
const codeUserRejected = 4001

// Signer signs transactions for one account
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error)
}

// Prompt asks the user to approve tx before it is signed
type Prompt func(tx *gethtypes.Transaction) (bool, error)

// KeySigner signs with a local private key, optionally asking first
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	prompt  Prompt
}

// NewKeySigner parses a hex private key. prompt may be nil.
func NewKeySigner(hexKey string, prompt Prompt) (*KeySigner, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		prompt:  prompt,
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTx(_ context.Context, tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error) {
	if s.prompt != nil {
		ok, err := s.prompt(tx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.ErrUserRejected
		}
	}
	return gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), s.key)
}

// ExternalSigner delegates signing to a clef instance, which asks the user
type ExternalSigner struct {
	clef    *external.ExternalSigner
	account accounts.Account
}

// NewExternalSigner connects to clef at endpoint. The account is the first
// one clef lists unless want is set.
func NewExternalSigner(endpoint string, want common.Address) (*ExternalSigner, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("clef endpoint not configured")
	}
	clef, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to external signer: %w", err)
	}
	accts := clef.Accounts()
	if len(accts) == 0 {
		return nil, fmt.Errorf("external signer has no accounts")
	}
	account := accts[0]
	if want != (common.Address{}) {
		if !clef.Contains(accounts.Account{Address: want}) {
			return nil, fmt.Errorf("external signer does not manage %s", want.Hex())
		}
		account = accounts.Account{Address: want}
	}
	return &ExternalSigner{clef: clef, account: account}, nil
}

func (s *ExternalSigner) Address() common.Address {
	return s.account.Address
}

func (s *ExternalSigner) SignTx(_ context.Context, tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error) {
	return s.clef.SignTx(s.account, tx, chainID)
}

// IsUserRejected reports whether err means the user declined to sign
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "request denied") ||
		strings.Contains(msg, "user rejected") ||
		strings.Contains(msg, "user denied")
}
