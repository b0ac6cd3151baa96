package config

// RPCSolverConfig is the server configuration, read from a TOML file or SOLVER_* env vars.
type RPCSolverConfig struct {
	// rpc configs
	Port int    `mapstructure:"port" toml:"port"`
	Host string `mapstructure:"host" toml:"host"`

	// gRPC server reflection
	EnableReflection bool `mapstructure:"enable_reflection" toml:"enable_reflection"`

	// CORS configs
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `mapstructure:"rate_per_minute" toml:"rate_per_minute"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests" toml:"max_concurrent_requests"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" toml:"request_timeout_seconds"`

	// OpenTelemetry configs
	ServiceName    string `mapstructure:"service_name" toml:"service_name"`
	ServiceVersion string `mapstructure:"service_version" toml:"service_version"`
	Environment    string `mapstructure:"environment" toml:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `mapstructure:"enable_tracing" toml:"enable_tracing"`
	OTLPTracesURL  string `mapstructure:"otlp_traces_url" toml:"otlp_traces_url"`
	EnableMetrics  bool   `mapstructure:"enable_metrics" toml:"enable_metrics"`
	UsePrometheus  bool   `mapstructure:"use_prometheus" toml:"use_prometheus"`
	OTLPMetricsURL string `mapstructure:"otlp_metrics_url" toml:"otlp_metrics_url"`
	EnableLogs     bool   `mapstructure:"enable_logs" toml:"enable_logs"`
	OTLPLogsURL    string `mapstructure:"otlp_logs_url" toml:"otlp_logs_url"`
	InsecureOTLP   bool   `mapstructure:"insecure_otlp" toml:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool   `mapstructure:"development_mode" toml:"development_mode"`
	LogLevel        string `mapstructure:"log_level" toml:"log_level"`

	// SVM account reader, the first url is the primary
	SvmRPCURLs []string `mapstructure:"svm_rpc_urls" toml:"svm_rpc_urls"`

	// swap composition
	SlippageBps   int    `mapstructure:"slippage_bps" toml:"slippage_bps"`
	ComputeBudget uint64 `mapstructure:"compute_budget" toml:"compute_budget"`
	// Registry is a local file or a go-getter source; empty uses the built-in pools
	Registry string `mapstructure:"registry" toml:"registry"`
}

// RegistryFile is the on-disk pool registry (TOML or JSON).
type RegistryFile struct {
	QuoteMint string       `toml:"quote_mint" json:"quote_mint"`
	Tokens    []TokenEntry `toml:"tokens" json:"tokens"`
	Pools     []PoolEntry  `toml:"pools" json:"pools"`
}

// TokenEntry maps a symbol to a mint.
type TokenEntry struct {
	Symbol string `toml:"symbol" json:"symbol"`
	Mint   string `toml:"mint" json:"mint"`
}

// PoolEntry is the account set of one Raydium CPMM pool. Addresses are base58.
type PoolEntry struct {
	Name          string `toml:"name" json:"name"`
	Authority     string `toml:"authority" json:"authority"`
	AmmConfig     string `toml:"amm_config" json:"amm_config"`
	PoolState     string `toml:"pool_state" json:"pool_state"`
	Token0Mint    string `toml:"token0_mint" json:"token0_mint"`
	Token1Mint    string `toml:"token1_mint" json:"token1_mint"`
	Token0Vault   string `toml:"token0_vault" json:"token0_vault"`
	Token1Vault   string `toml:"token1_vault" json:"token1_vault"`
	ObserverState string `toml:"observer_state" json:"observer_state"`
	TokenProgram  string `toml:"token_program,omitempty" json:"token_program,omitempty"`
	FeeRate       *int64 `toml:"fee_rate,omitempty" json:"fee_rate,omitempty"` // parts per million
}
