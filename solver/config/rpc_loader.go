package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/rpc"
)

// envPrefix is the prefix of every env var the solver reads.
const envPrefix = "SOLVER"

// LoadRPCSolverConfig loads the server config from the given TOML file, or from env
// vars when configPath is nil.
func LoadRPCSolverConfig(configPath *string) (*RPCSolverConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}

	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("enable_reflection", true)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("rate_per_minute", 100)
	v.SetDefault("max_concurrent_requests", 200)
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("service_name", "spectra-svm-solver")
	v.SetDefault("service_version", "1.0.0")
	v.SetDefault("environment", "production")
	v.SetDefault("slippage_bps", router.DefaultSlippageBps)
	v.SetDefault("log_level", "info")
}

func loadEnv(v *viper.Viper) (*RPCSolverConfig, error) {
	// a missing .env is fine, the vars may come from docker or systemd
	_ = godotenv.Load()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config RPCSolverConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "enable_reflection", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests", "request_timeout_seconds",
		"service_name", "service_version", "environment",
		"enable_tracing", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "otlp_metrics_url",
		"enable_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode", "log_level",
		"svm_rpc_urls", "slippage_bps", "compute_budget", "registry",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*RPCSolverConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config RPCSolverConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

func verifyConfig(config *RPCSolverConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}
	if len(config.SvmRPCURLs) == 0 {
		return fmt.Errorf("svm_rpc_urls is required")
	}
	for _, u := range config.SvmRPCURLs {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("svm_rpc_urls: %q is not an http(s) url", u)
		}
	}
	if config.SlippageBps < 0 || config.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps must be between 0 and 10000")
	}
	return nil
}

// Address returns host:port.
func (c *RPCSolverConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerConfig converts the file config into the rpc server config.
func (c *RPCSolverConfig) ServerConfig() *rpc.ServerConfig {
	rate := c.RatePerMinute
	concurrent := c.MaxConcurrentRequests
	return &rpc.ServerConfig{
		Address:               c.Address(),
		AllowedOrigins:        c.AllowedOrigins,
		EnableMetrics:         c.EnableMetrics || c.UsePrometheus,
		EnableReflection:      c.EnableReflection,
		RatePerMinute:         &rate,
		MaxConcurrentRequests: &concurrent,
		RequestTimeout:        time.Duration(c.RequestTimeoutSeconds) * time.Second,
		OTelConfig: &rpc.OTelConfig{
			ServiceName:     c.ServiceName,
			ServiceVersion:  c.ServiceVersion,
			Environment:     c.Environment,
			EnableTracing:   c.EnableTracing,
			TracesEndpoint:  c.OTLPTracesURL,
			EnableMetrics:   c.EnableMetrics,
			UsePrometheus:   c.UsePrometheus,
			MetricsEndpoint: c.OTLPMetricsURL,
			EnableLogs:      c.EnableLogs,
			LogsEndpoint:    c.OTLPLogsURL,
			InsecureOTLP:    c.InsecureOTLP,
			DevelopmentMode: c.DevelopmentMode,
		},
	}
}
