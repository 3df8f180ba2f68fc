package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Signer backends
const (
	SignerKey      = "key"
	SignerExternal = "external"
)

// Config holds the application configuration
type Config struct {
	// Chain
	RPCURL     string
	ChainID    int64
	Signer     string
	PrivateKey string // used by the key signer
	ClefURL    string
	Account    string
	SignPrompt bool

	// Contracts
	HelperAddress        string
	FactoryAddress       string
	WrappedNativeAddress string

	// Native coin
	NativeSymbol     string
	NativeDecimals   uint8
	NativeGasReserve string // whole units kept back for gas by "max"

	// Submission
	DeadlineMinutes int
	SlippageBps     int64
	ExpertMode      bool
	AnyRatio        bool
	GasMarginBps    int64
	ExactApproval   bool

	// Ledger
	LedgerPath           string
	WatchIntervalSeconds int
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".lp-helper")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("chain_id", 1)
	viper.SetDefault("signer", SignerKey)
	viper.SetDefault("sign_prompt", true)
	viper.SetDefault("native_symbol", "ETH")
	viper.SetDefault("native_decimals", 18)
	viper.SetDefault("native_gas_reserve", "0.01")
	viper.SetDefault("deadline_minutes", 20)
	viper.SetDefault("slippage_bps", 50)
	viper.SetDefault("expert_mode", false)
	viper.SetDefault("any_ratio", false)
	viper.SetDefault("gas_margin_bps", 1000)
	viper.SetDefault("exact_approval", false)
	viper.SetDefault("watch_interval_seconds", 15)

	// Read from environment variables
	viper.SetEnvPrefix("LP_HELPER")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		RPCURL:               viper.GetString("rpc_url"),
		ChainID:              viper.GetInt64("chain_id"),
		Signer:               strings.ToLower(viper.GetString("signer")),
		PrivateKey:           viper.GetString("private_key"),
		ClefURL:              viper.GetString("clef_url"),
		Account:              viper.GetString("account"),
		SignPrompt:           viper.GetBool("sign_prompt"),
		HelperAddress:        viper.GetString("helper_address"),
		FactoryAddress:       viper.GetString("factory_address"),
		WrappedNativeAddress: viper.GetString("wrapped_native_address"),
		NativeSymbol:         viper.GetString("native_symbol"),
		NativeDecimals:       uint8(viper.GetUint("native_decimals")),
		NativeGasReserve:     viper.GetString("native_gas_reserve"),
		DeadlineMinutes:      viper.GetInt("deadline_minutes"),
		SlippageBps:          viper.GetInt64("slippage_bps"),
		ExpertMode:           viper.GetBool("expert_mode"),
		AnyRatio:             viper.GetBool("any_ratio"),
		GasMarginBps:         viper.GetInt64("gas_margin_bps"),
		ExactApproval:        viper.GetBool("exact_approval"),
		LedgerPath:           viper.GetString("ledger_path"),
		WatchIntervalSeconds: viper.GetInt("watch_interval_seconds"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that do not need the network
func (c *Config) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("chain_id must be positive")
	}
	if c.Signer != SignerKey && c.Signer != SignerExternal {
		return fmt.Errorf("signer must be '%s' or '%s'", SignerKey, SignerExternal)
	}
	if c.DeadlineMinutes <= 0 {
		return fmt.Errorf("deadline_minutes must be positive")
	}
	if c.SlippageBps < 0 || c.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps must be between 0 and 10000")
	}
	if c.GasMarginBps < 0 {
		return fmt.Errorf("gas_margin_bps must not be negative")
	}
	if c.NativeDecimals > 77 {
		return fmt.Errorf("native_decimals is out of range")
	}
	if _, err := c.GasReserve(); err != nil {
		return err
	}
	for name, addr := range map[string]string{
		"helper_address":         c.HelperAddress,
		"factory_address":        c.FactoryAddress,
		"wrapped_native_address": c.WrappedNativeAddress,
		"account":                c.Account,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("%s is not a valid address: %s", name, addr)
		}
	}
	return nil
}

// RequireChain checks the settings every on-chain command needs
func (c *Config) RequireChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC URL not found. Please set LP_HELPER_RPC_URL or add rpc_url to .lp-helper.yaml")
	}
	if c.FactoryAddress == "" || c.WrappedNativeAddress == "" {
		return fmt.Errorf("factory_address and wrapped_native_address must be configured")
	}
	return nil
}

// RequireSigner checks the settings needed to send transactions
func (c *Config) RequireSigner() error {
	if c.HelperAddress == "" {
		return fmt.Errorf("helper_address must be configured")
	}
	switch c.Signer {
	case SignerKey:
		if c.PrivateKey == "" {
			return fmt.Errorf("private key not found. Please set LP_HELPER_PRIVATE_KEY")
		}
	case SignerExternal:
		if c.ClefURL == "" {
			return fmt.Errorf("clef_url must be configured for the external signer")
		}
	}
	return nil
}

// GasReserve returns the native amount kept back for gas in raw units
func (c *Config) GasReserve() (*big.Int, error) {
	if c.NativeGasReserve == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(c.NativeGasReserve)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("native_gas_reserve is not a valid amount: %s", c.NativeGasReserve)
	}
	return d.Shift(int32(c.NativeDecimals)).BigInt(), nil
}

// WatchInterval returns the receipt polling interval
func (c *Config) WatchInterval() time.Duration {
	if c.WatchIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.WatchIntervalSeconds) * time.Second
}
