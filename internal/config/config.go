// Package config loads client configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Celo Alfajores testnet, where the marketplace contract is deployed.
const (
	defaultRPCURL  = "https://alfajores-forno.celo-testnet.org"
	defaultChainID = 44787
	// cUSD uses 18 decimals, like most ERC-20s.
	defaultTokenDecimals = 18
)

// Config holds everything the client needs to reach the chain and the two
// contracts. Addresses are fixed per deployment, not discovered.
type Config struct {
	RPCURL        string
	ChainID       int64
	MarketAddress string
	TokenAddress  string
	TokenDecimals int32
	KeystoreDir   string // local keystore provider; empty disables it
	BridgeURL     string // remote wallet bridge websocket; empty disables it
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	chainID, err := getEnvInt64("ARTMARKET_CHAIN_ID", defaultChainID)
	if err != nil {
		return nil, err
	}
	decimals, err := getEnvInt64("ARTMARKET_TOKEN_DECIMALS", defaultTokenDecimals)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCURL:        getEnv("ARTMARKET_RPC_URL", defaultRPCURL),
		ChainID:       chainID,
		MarketAddress: getEnv("ARTMARKET_MARKET_ADDRESS", ""),
		TokenAddress:  getEnv("ARTMARKET_TOKEN_ADDRESS", ""),
		TokenDecimals: int32(decimals),
		KeystoreDir:   getEnv("ARTMARKET_KEYSTORE_DIR", ""),
		BridgeURL:     getEnv("ARTMARKET_BRIDGE_URL", ""),
	}

	if cfg.MarketAddress == "" {
		return nil, fmt.Errorf("config: ARTMARKET_MARKET_ADDRESS is required")
	}
	if cfg.TokenAddress == "" {
		return nil, fmt.Errorf("config: ARTMARKET_TOKEN_ADDRESS is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
