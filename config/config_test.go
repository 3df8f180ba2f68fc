package config

import (
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func validConfig() *Config {
	return &Config{
		ChainID:          1,
		Signer:           SignerKey,
		NativeDecimals:   18,
		NativeGasReserve: "0.01",
		DeadlineMinutes:  20,
		SlippageBps:      50,
		GasMarginBps:     1000,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Signer = "ledger"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.SlippageBps = 10001
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.DeadlineMinutes = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.HelperAddress = "0x1234"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.NativeGasReserve = "-1"
	assert.Error(t, cfg.Validate())
}

func TestRequireChainAndSigner(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.RequireChain())

	cfg.RPCURL = "http://localhost:8545"
	cfg.FactoryAddress = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
	cfg.WrappedNativeAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	assert.NoError(t, cfg.RequireChain())

	assert.Error(t, cfg.RequireSigner())
	cfg.HelperAddress = "0x000000000000000000000000000000000000bEEF"
	assert.Error(t, cfg.RequireSigner())
	cfg.PrivateKey = "0xabc"
	assert.NoError(t, cfg.RequireSigner())

	cfg.Signer = SignerExternal
	assert.Error(t, cfg.RequireSigner())
	cfg.ClefURL = "http://localhost:8550"
	assert.NoError(t, cfg.RequireSigner())
}

func TestGasReserveAndInterval(t *testing.T) {
	reserve, err := validConfig().GasReserve()
	assert.NoError(t, err)
	assert.Equal(t, reserve.String(), "10000000000000000")

	cfg := validConfig()
	assert.Equal(t, cfg.WatchInterval(), 15*time.Second)
	cfg.WatchIntervalSeconds = 3
	assert.Equal(t, cfg.WatchInterval(), 3*time.Second)
}
