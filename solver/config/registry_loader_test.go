package config_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/config"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers/raydium"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

const registryTOML = `
quote_mint = "HwkqUQaXocRwNLGX2qKmC3Sk4uTVxmzmCEAEHDwSj4KQ"

[[tokens]]
symbol = "btc"
mint = "9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej"

[[tokens]]
symbol = "usdt"
mint = "HwkqUQaXocRwNLGX2qKmC3Sk4uTVxmzmCEAEHDwSj4KQ"

[[pools]]
name = "btc-usdt"
authority = "GpMZbSM2GgvTKHJirzeGfMFoaZ8UR2X7F4v8vHTvxFbL"
amm_config = "D4FPEruKEHrG5TenZ2mpDGEfu1iUvTiqBxvpU8HLBvC2"
pool_state = "5qUshuBSTpuMu5c1C1Fxq8uJ7Emhn9AAtQwVJfEXAPmy"
token0_mint = "9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej"
token1_mint = "HwkqUQaXocRwNLGX2qKmC3Sk4uTVxmzmCEAEHDwSj4KQ"
token0_vault = "9U5Lpfmc6u1rCRAfzGe883KnK5Avm76zX4te6sexvCEk"
token1_vault = "UURmKznoUTh8Dt9wgyusq6u1ETuY8Zj79NFAtfQJ7HB"
observer_state = "FXqXrt2xDrxg7J5wdXrTbB2hCGajSzXLvwvc4x3Uw7i"
fee_rate = 2500
`

const registryJSON = `{
  "tokens": [{"symbol": "btc", "mint": "9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej"}],
  "pools": [{
    "name": "btc-usdt-legacy",
    "authority": "GpMZbSM2GgvTKHJirzeGfMFoaZ8UR2X7F4v8vHTvxFbL",
    "amm_config": "D4FPEruKEHrG5TenZ2mpDGEfu1iUvTiqBxvpU8HLBvC2",
    "pool_state": "5qUshuBSTpuMu5c1C1Fxq8uJ7Emhn9AAtQwVJfEXAPmy",
    "token0_mint": "9kWnPUAkspGW6qGPPah1aAdH316nkiJhow5neRs5YDej",
    "token1_mint": "HwkqUQaXocRwNLGX2qKmC3Sk4uTVxmzmCEAEHDwSj4KQ",
    "token0_vault": "9U5Lpfmc6u1rCRAfzGe883KnK5Avm76zX4te6sexvCEk",
    "token1_vault": "UURmKznoUTh8Dt9wgyusq6u1ETuY8Zj79NFAtfQJ7HB",
    "observer_state": "FXqXrt2xDrxg7J5wdXrTbB2hCGajSzXLvwvc4x3Uw7i",
    "token_program": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
  }]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRegistryLoader_TOML(t *testing.T) {
	reg, err := config.NewRegistryLoader().LoadFromFile(writeFile(t, "registry.toml", registryTOML))
	assert.NoError(t, err)

	accounts, err := reg.PoolAccounts("btc-usdt")
	assert.NoError(t, err)
	assert.Equal(t, accounts.Token1Vault.String(), "UURmKznoUTh8Dt9wgyusq6u1ETuY8Zj79NFAtfQJ7HB")
	assert.Equal(t, accounts.EffectiveFeeRate().Int64(), int64(2500))
	assert.Equal(t, accounts.EffectiveTokenProgram(), svm.Token2022ProgramID)

	mint, err := reg.Denom("btc")
	assert.NoError(t, err)
	assert.Equal(t, mint, accounts.Token0Mint)
}

func TestRegistryLoader_JSON(t *testing.T) {
	reg, err := config.NewRegistryLoader().LoadFromFile(writeFile(t, "registry.json", registryJSON))
	assert.NoError(t, err)
	assert.Equal(t, reg.QuoteMint(), raydium.DefaultQuoteMint)

	accounts, err := reg.PoolAccounts("btc-usdt-legacy")
	assert.NoError(t, err)
	assert.Equal(t, accounts.EffectiveTokenProgram(), svm.TokenProgramID)
	assert.Equal(t, accounts.EffectiveFeeRate().Int64(), int64(raydium.DefaultFeeRate))

	_, err = reg.PoolAccounts("btc-usdt")
	assert.True(t, errors.Is(err, brokers.ErrNotFound))
}

func TestRegistryLoader_Load(t *testing.T) {
	loader := config.NewRegistryLoader()

	reg, err := loader.Load(context.Background(), "")
	assert.NoError(t, err)
	assert.DeepEqual(t, reg.PoolNames(), []string{"btc-usdt"})

	reg, err = loader.Load(context.Background(), writeFile(t, "registry.toml", registryTOML))
	assert.NoError(t, err)
	assert.DeepEqual(t, reg.PoolNames(), []string{"btc-usdt"})
}

func TestRegistryLoader_LoadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(registryJSON))
	}))
	defer srv.Close()

	reg, err := config.NewRegistryLoader().Load(context.Background(), srv.URL+"/pools/registry.json")
	assert.NoError(t, err)
	assert.DeepEqual(t, reg.PoolNames(), []string{"btc-usdt-legacy"})
}

func TestRegistryLoader_Invalid(t *testing.T) {
	loader := config.NewRegistryLoader()

	cases := map[string]string{
		"no pools":      `quote_mint = "HwkqUQaXocRwNLGX2qKmC3Sk4uTVxmzmCEAEHDwSj4KQ"`,
		"bad address":   `[[pools]]` + "\n" + `name = "x"` + "\n" + `authority = "not-base58-0OIl"`,
		"missing field": `[[pools]]` + "\n" + `name = "x"`,
		"bad toml":      `[[pools]`,
		"bad token":     `[[tokens]]` + "\n" + `symbol = "btc"` + "\n" + `mint = "short"` + "\n" + `[[pools]]` + "\n" + `name = "x"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loader.LoadFromFile(writeFile(t, "registry.toml", content))
			assert.Error(t, err)
		})
	}

	_, err := loader.LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
