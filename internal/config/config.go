package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
)

// Config is populated from the process environment (and .env via godotenv)
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	RPCURL             string `env:"RPC_URL" validate:"required,url"`
	ChainID            int64  `env:"CHAIN_ID" envDefault:"11155111" validate:"gt=0"`
	MarketplaceAddress string `env:"MARKETPLACE_ADDRESS" validate:"required,eth_addr"`
	NFTContractAddress string `env:"NFT_CONTRACT_ADDRESS" validate:"required,eth_addr"`
	// PrivateKey signs operator transactions; empty means read-only
	PrivateKey string `env:"PRIVATE_KEY"`

	PostgresURL string `env:"POSTGRES_URL"`
	SqlitePath  string `env:"SQLITE_PATH" envDefault:"nft-marketplace.db"`

	Pinata PinataConfig
	Log    LogConfig
	Auth   AuthConfig

	IPFSGateways       []string      `env:"IPFS_GATEWAYS" envSeparator:","`
	GasEstimateTimeout time.Duration `env:"GAS_ESTIMATE_TIMEOUT" envDefault:"10s"`
	// ReconcileInterval enables the periodic listing reconciliation job when > 0
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"0s"`
}

type PinataConfig struct {
	APIKey    string `env:"PINATA_API_KEY"`
	SecretKey string `env:"PINATA_SECRET_API_KEY"`
	APIURL    string `env:"PINATA_API_URL" envDefault:"https://api.pinata.cloud" validate:"url"`
}

type LogConfig struct {
	Level             string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding          string `env:"LOG_ENCODING" envDefault:"json" validate:"oneof=json console"`
	Development       bool   `env:"LOG_DEVELOPMENT"`
	DisableCaller     bool   `env:"LOG_DISABLE_CALLER"`
	DisableStacktrace bool   `env:"LOG_DISABLE_STACKTRACE"`
	Sampling          bool   `env:"LOG_SAMPLING"`
}

type AuthConfig struct {
	// JwksURI enables bearer authentication on mutating API routes when set
	JwksURI              string   `env:"JWKS_URI"`
	ResourceID           string   `env:"AUTH_RESOURCE_ID"`
	AuthorizationServers []string `env:"AUTH_AUTHORIZATION_SERVERS" envSeparator:","`
}

// Load parses and validates the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if len(cfg.IPFSGateways) == 0 {
		cfg.IPFSGateways = constants.IPFSGateways
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

func (c *Config) Marketplace() common.Address {
	return common.HexToAddress(c.MarketplaceAddress)
}

func (c *Config) NFTContract() common.Address {
	return common.HexToAddress(c.NFTContractAddress)
}

// HasSigner reports whether an operator key is configured
func (c *Config) HasSigner() bool {
	return c.PrivateKey != ""
}
