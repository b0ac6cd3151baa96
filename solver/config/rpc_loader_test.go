package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/config"
)

// unsetSolverEnv clears SOLVER_* vars and moves into an empty dir so godotenv has no
// .env file to pick up.
func unsetSolverEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "SOLVER_") {
			key, _, _ := strings.Cut(e, "=")
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoadRPCSolverConfig_FromEnv(t *testing.T) {
	unsetSolverEnv(t)
	t.Setenv("SOLVER_PORT", "9000")
	t.Setenv("SOLVER_HOST", "0.0.0.0")
	t.Setenv("SOLVER_SVM_RPC_URLS", "https://rpc-1.example.com,https://rpc-2.example.com")
	t.Setenv("SOLVER_SLIPPAGE_BPS", "50")

	cfg, err := config.LoadRPCSolverConfig(nil)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Port, 9000)
	assert.Equal(t, cfg.Host, "0.0.0.0")
	assert.Equal(t, len(cfg.SvmRPCURLs), 2)
	assert.Equal(t, cfg.SlippageBps, 50)
	// defaults
	assert.Equal(t, cfg.RatePerMinute, 100)
	assert.Equal(t, cfg.ServiceName, "spectra-svm-solver")
	assert.True(t, cfg.EnableReflection)
	assert.Equal(t, cfg.Address(), "0.0.0.0:9000")
}

func TestLoadRPCSolverConfig_FromEnv_FailVerification(t *testing.T) {
	unsetSolverEnv(t)
	t.Setenv("SOLVER_PORT", "8080")

	// no svm_rpc_urls
	_, err := config.LoadRPCSolverConfig(nil)
	assert.Error(t, err)

	t.Setenv("SOLVER_SVM_RPC_URLS", "ws://rpc.example.com")
	_, err = config.LoadRPCSolverConfig(nil)
	assert.Error(t, err)

	t.Setenv("SOLVER_SVM_RPC_URLS", "https://rpc.example.com")
	t.Setenv("SOLVER_SLIPPAGE_BPS", "20000")
	_, err = config.LoadRPCSolverConfig(nil)
	assert.Error(t, err)
}

func TestLoadRPCSolverConfig_FromFile(t *testing.T) {
	unsetSolverEnv(t)

	path := filepath.Join(t.TempDir(), "solver.toml")
	content := `
port = 9090
host = "127.0.0.1"
allowed_origins = ["https://example.com"]
svm_rpc_urls = ["https://rpc.example.com"]
request_timeout_seconds = 5
enable_reflection = false
enable_tracing = true
otlp_traces_url = "http://collector:4318/v1/traces"
compute_budget = 400000
registry = "https://example.com/registry.toml"
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadRPCSolverConfig(&path)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Port, 9090)
	assert.DeepEqual(t, cfg.AllowedOrigins, []string{"https://example.com"})
	assert.Equal(t, cfg.ComputeBudget, uint64(400000))
	assert.Equal(t, cfg.Registry, "https://example.com/registry.toml")

	server := cfg.ServerConfig()
	assert.Equal(t, server.Address, "127.0.0.1:9090")
	assert.Equal(t, server.RequestTimeout, 5*time.Second)
	assert.False(t, server.EnableReflection)
	assert.True(t, server.OTelConfig.EnableTracing)
	assert.Equal(t, server.OTelConfig.TracesEndpoint, "http://collector:4318/v1/traces")
}

func TestLoadRPCSolverConfig_FromFile_Invalid(t *testing.T) {
	unsetSolverEnv(t)
	dir := t.TempDir()

	notToml := filepath.Join(dir, "solver.yaml")
	_, err := config.LoadRPCSolverConfig(&notToml)
	assert.Error(t, err)

	missing := filepath.Join(dir, "missing.toml")
	_, err = config.LoadRPCSolverConfig(&missing)
	assert.Error(t, err)

	badPort := filepath.Join(dir, "bad.toml")
	assert.NoError(t, os.WriteFile(badPort, []byte("port = 70000\nsvm_rpc_urls = [\"https://rpc.example.com\"]\n"), 0o600))
	_, err = config.LoadRPCSolverConfig(&badPort)
	assert.Error(t, err)
}
