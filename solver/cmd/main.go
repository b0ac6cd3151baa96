package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	accountquery "github.com/Cogwheel-Validator/spectra-svm-solver/solver/account_query"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/config"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/router/brokers/raydium"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/rpc"
	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	rpc.SetLogger(log)
	router.SetLogger(log)
	raydium.SetLogger(log)
	svm.SetLogger(log)
	accountquery.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "toml config file for the solver, env vars (SOLVER_*) are used when empty")
	registrySrc := flag.String("registry", "", "pool registry file or go-getter url, overrides the config value")
	flag.Parse()

	var cfgPath *string
	if *configPath != "" {
		cfgPath = configPath
	}

	log.Info().
		Str("config", *configPath).
		Str("registry", *registrySrc).
		Msg("Starting Spectra's SVM solver")

	cfg, err := config.LoadRPCSolverConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load solver config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, keeping info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := cfg.Registry
	if *registrySrc != "" {
		src = *registrySrc
	}
	registry, err := config.NewRegistryLoader().Load(ctx, src)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load pool registry")
	}
	log.Info().Strs("pools", registry.PoolNames()).Msg("Loaded pool registry")

	accounts, err := accountquery.NewClientWithFailover(
		cfg.SvmRPCURLs[0],
		cfg.SvmRPCURLs[1:],
		accountquery.DefaultFailoverConfig(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account query client")
	}
	defer accounts.Close()

	var brokerOpts []raydium.Option
	if cfg.ComputeBudget > 0 {
		brokerOpts = append(brokerOpts, raydium.WithComputeBudget(cfg.ComputeBudget))
	}
	solver := router.NewSolver(
		raydium.NewBroker(registry, brokerOpts...),
		accounts,
		uint32(cfg.SlippageBps),
	)

	server, err := rpc.NewServer(ctx, cfg.ServerConfig(), solver)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RPC server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
