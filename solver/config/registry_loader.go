package config

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
	"github.com/pelletier/go-toml/v2"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers/raydium"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

// registryFetchTimeout bounds a remote registry download.
const registryFetchTimeout = 60 * time.Second

// RegistryLoader loads the pool registry and converts it to the broker's types.
type RegistryLoader struct{}

// NewRegistryLoader creates a new registry loader.
func NewRegistryLoader() *RegistryLoader {
	return &RegistryLoader{}
}

// Load reads the registry from src. An empty src returns the built-in registry, an
// existing local path is read directly, and anything else is fetched with go-getter
// (http, https, s3, git, ...).
func (l *RegistryLoader) Load(ctx context.Context, src string) (*raydium.Registry, error) {
	if src == "" {
		return raydium.DefaultRegistry(), nil
	}
	if _, err := os.Stat(src); err == nil {
		return l.LoadFromFile(src)
	}

	dir, err := os.MkdirTemp("", "svm-solver-registry-")
	if err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	dst := filepath.Join(dir, "registry"+registryExt(src))

	ctx, cancel := context.WithTimeout(ctx, registryFetchTimeout)
	defer cancel()

	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return nil, fmt.Errorf("failed to download registry from %s: %w", src, err)
	}

	return l.LoadFromFile(dst)
}

// registryExt keeps the source's extension so the format can be told apart after
// download.
func registryExt(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	if ext := strings.ToLower(path.Ext(p)); ext == ".json" {
		return ext
	}
	return ".toml"
}

// LoadFromFile loads a registry from a TOML or JSON file.
func (l *RegistryLoader) LoadFromFile(filePath string) (*raydium.Registry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var file RegistryFile
	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON registry: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse TOML registry: %w", err)
		}
	}

	return l.ConvertToRaydium(&file)
}

// ConvertToRaydium validates every address in the file and builds the registry.
func (l *RegistryLoader) ConvertToRaydium(file *RegistryFile) (*raydium.Registry, error) {
	if file == nil || len(file.Pools) == 0 {
		return nil, fmt.Errorf("no pools in registry")
	}

	quoteMint := raydium.DefaultQuoteMint
	if file.QuoteMint != "" {
		var err error
		if quoteMint, err = svm.PubkeyFromBase58(file.QuoteMint); err != nil {
			return nil, fmt.Errorf("quote_mint: %w", err)
		}
	}
	reg := raydium.NewRegistry(quoteMint)

	for _, token := range file.Tokens {
		if token.Symbol == "" {
			return nil, fmt.Errorf("token %s: symbol is required", token.Mint)
		}
		mint, err := svm.PubkeyFromBase58(token.Mint)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", token.Symbol, err)
		}
		reg.AddSymbol(token.Symbol, mint)
	}

	for _, entry := range file.Pools {
		accounts, err := convertPool(entry)
		if err != nil {
			return nil, err
		}
		if err := reg.AddPool(entry.Name, accounts); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func convertPool(entry PoolEntry) (raydium.PoolAccounts, error) {
	var accounts raydium.PoolAccounts
	fields := []struct {
		name     string
		value    string
		dst      *svm.Pubkey
		optional bool
	}{
		{"authority", entry.Authority, &accounts.Authority, false},
		{"amm_config", entry.AmmConfig, &accounts.AmmConfig, false},
		{"pool_state", entry.PoolState, &accounts.PoolState, false},
		{"token0_mint", entry.Token0Mint, &accounts.Token0Mint, false},
		{"token1_mint", entry.Token1Mint, &accounts.Token1Mint, false},
		{"token0_vault", entry.Token0Vault, &accounts.Token0Vault, false},
		{"token1_vault", entry.Token1Vault, &accounts.Token1Vault, false},
		{"observer_state", entry.ObserverState, &accounts.ObserverState, false},
		{"token_program", entry.TokenProgram, &accounts.TokenProgram, true},
	}
	for _, f := range fields {
		if f.value == "" && f.optional {
			continue
		}
		pk, err := svm.PubkeyFromBase58(f.value)
		if err != nil {
			return raydium.PoolAccounts{}, fmt.Errorf("pool %s: %s: %w", entry.Name, f.name, err)
		}
		*f.dst = pk
	}
	if entry.FeeRate != nil {
		accounts.FeeRate = big.NewInt(*entry.FeeRate)
	}
	return accounts, nil
}
