// Package accountquery reads SVM accounts from a JSON-RPC endpoint, failing over to
// backup endpoints when the primary is unavailable.
package accountquery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-svm-solver/solver/svm"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "account-query").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "account-query").Logger()
}

// ErrAccountNotFound is returned when a requested account does not exist on chain.
var ErrAccountNotFound = errors.New("account not found")

// Client fetches accounts over JSON-RPC with failover support.
// It maintains a primary endpoint and switches to backup endpoints when the primary
// stops answering.
type Client struct {
	endpoints      []*endpoint
	current        int
	mu             sync.RWMutex
	healthChecker  *healthChecker
	failoverConfig FailoverConfig
	commitment     rpc.CommitmentType
}

type endpoint struct {
	url    string
	client *rpc.Client
}

// FailoverConfig controls failover behavior
type FailoverConfig struct {
	// MaxRetries is the number of times to retry a failed request on the current endpoint
	MaxRetries int
	// RetryDelay is the initial delay between retries (doubles with each retry)
	RetryDelay time.Duration
	// HealthCheckInterval is how often to check if the primary endpoint is back up
	HealthCheckInterval time.Duration
	// Timeout bounds a single request
	Timeout time.Duration
}

// DefaultFailoverConfig returns the defaults used when none are configured.
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:          2,
		RetryDelay:          500 * time.Millisecond,
		HealthCheckInterval: 30 * time.Second,
		Timeout:             10 * time.Second,
	}
}

// healthChecker periodically checks if the primary endpoint is healthy
type healthChecker struct {
	client    *Client
	stopCh    chan struct{}
	stoppedCh chan struct{}
	isRunning bool
	mu        sync.Mutex
}

// NewClient creates a client for a single endpoint.
func NewClient(rpcURL string) (*Client, error) {
	return NewClientWithFailover(rpcURL, nil, DefaultFailoverConfig())
}

// NewClientWithFailover creates a client with backup endpoints. Invalid backup URLs are
// skipped; an invalid primary URL is an error.
func NewClientWithFailover(primaryURL string, backupURLs []string, config FailoverConfig) (*Client, error) {
	if err := validateURL(primaryURL); err != nil {
		return nil, fmt.Errorf("invalid primary rpc url: %w", err)
	}

	endpoints := []*endpoint{{url: primaryURL, client: rpc.New(primaryURL)}}
	for _, u := range backupURLs {
		if err := validateURL(u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Invalid backup URL, skipping")
			continue
		}
		endpoints = append(endpoints, &endpoint{url: u, client: rpc.New(u)})
	}

	client := &Client{
		endpoints:      endpoints,
		failoverConfig: config,
		commitment:     rpc.CommitmentConfirmed,
	}

	if len(endpoints) > 1 {
		client.startHealthChecker()
	}

	log.Info().
		Str("primary", primaryURL).
		Int("backups", len(endpoints)-1).
		Msg("Account query client initialized")
	return client, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

func (c *Client) startHealthChecker() {
	c.healthChecker = &healthChecker{
		client:    c,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	c.healthChecker.start()
}

func (h *healthChecker) start() {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	go func() {
		defer close(h.stoppedCh)
		ticker := time.NewTicker(h.client.failoverConfig.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.checkAndRestore()
			}
		}
	}()
}

func (h *healthChecker) stop() {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = false
	h.mu.Unlock()

	close(h.stopCh)
	<-h.stoppedCh
}

// checkAndRestore switches back to the primary endpoint once it is healthy again
func (h *healthChecker) checkAndRestore() {
	h.client.mu.RLock()
	current := h.client.current
	h.client.mu.RUnlock()

	if current == 0 {
		return
	}

	if h.client.isEndpointHealthy(h.client.endpoints[0]) {
		h.client.mu.Lock()
		h.client.current = 0
		h.client.mu.Unlock()
		log.Info().Str("url", h.client.endpoints[0].url).Msg("Restored primary endpoint")
	}
}

func (c *Client) isEndpointHealthy(ep *endpoint) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.failoverConfig.Timeout)
	defer cancel()

	status, err := ep.client.GetHealth(ctx)
	if err != nil {
		log.Debug().Err(err).Str("url", ep.url).Msg("Health check failed")
		return false
	}
	log.Debug().Str("url", ep.url).Str("status", status).Msg("Health check response")
	return status == "ok"
}

func (c *Client) currentEndpoint() *endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints[c.current]
}

// CurrentURL returns the endpoint requests are currently sent to.
func (c *Client) CurrentURL() string {
	return c.currentEndpoint().url
}

// failover switches to the next healthy endpoint. Health checks run without holding
// the lock so concurrent requests keep using the current endpoint meanwhile.
func (c *Client) failover() bool {
	c.mu.RLock()
	from := c.current
	c.mu.RUnlock()

	for i := 1; i < len(c.endpoints); i++ {
		next := (from + i) % len(c.endpoints)
		if !c.isEndpointHealthy(c.endpoints[next]) {
			continue
		}

		c.mu.Lock()
		// another request already moved off the failing endpoint
		if c.current != from {
			c.mu.Unlock()
			return true
		}
		c.current = next
		c.mu.Unlock()

		log.Info().Str("url", c.endpoints[next].url).Msg("Failover to endpoint")
		return true
	}

	log.Warn().Str("url", c.endpoints[from].url).Msg("All endpoints unhealthy, staying on current")
	return false
}

// Close stops the health checker.
func (c *Client) Close() {
	if c.healthChecker != nil {
		c.healthChecker.stop()
	}
}

// doWithFailover runs call against the current endpoint with retries, then once more
// against a backup if the current endpoint keeps failing.
func doWithFailover[T any](ctx context.Context, c *Client, call func(context.Context, *rpc.Client) (T, error)) (T, error) {
	var zero T
	var lastErr error
	retryDelay := c.failoverConfig.RetryDelay

	attempt := func(ep *endpoint) (T, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.failoverConfig.Timeout)
		defer cancel()
		return call(reqCtx, ep.client)
	}

	for i := 0; i <= c.failoverConfig.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		out, err := attempt(c.currentEndpoint())
		if err == nil {
			return out, nil
		}
		lastErr = err
	}

	if len(c.endpoints) > 1 && c.failover() {
		out, err := attempt(c.currentEndpoint())
		if err != nil {
			return zero, fmt.Errorf("failover request failed: %w (original: %w)", err, lastErr)
		}
		return out, nil
	}

	return zero, fmt.Errorf("request failed after %d retries: %w", c.failoverConfig.MaxRetries+1, lastErr)
}

// GetAccounts fetches the accounts at keys, in order. A missing account is an error.
func (c *Client) GetAccounts(ctx context.Context, keys []svm.Pubkey) ([]svm.Account, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pubkeys := make([]solana.PublicKey, len(keys))
	for i, k := range keys {
		pubkeys[i] = solana.PublicKey(k)
	}
	opts := &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	}

	res, err := doWithFailover(ctx, c, func(ctx context.Context, cl *rpc.Client) (*rpc.GetMultipleAccountsResult, error) {
		return cl.GetMultipleAccountsWithOpts(ctx, pubkeys, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("get multiple accounts: %w", err)
	}
	if res == nil || len(res.Value) != len(keys) {
		return nil, fmt.Errorf("get multiple accounts: expected %d accounts", len(keys))
	}

	accounts := make([]svm.Account, len(keys))
	for i, acc := range res.Value {
		if acc == nil {
			return nil, fmt.Errorf("%s: %w", keys[i], ErrAccountNotFound)
		}
		var rentEpoch uint64
		if acc.RentEpoch != nil && acc.RentEpoch.IsUint64() {
			rentEpoch = acc.RentEpoch.Uint64()
		}
		var data []byte
		if acc.Data != nil {
			data = acc.Data.GetBinary()
		}
		accounts[i] = svm.Account{
			Pubkey:     keys[i].Bytes(),
			Owner:      acc.Owner.Bytes(),
			Lamports:   acc.Lamports,
			Data:       data,
			Executable: acc.Executable,
			RentEpoch:  rentEpoch,
		}
	}

	log.Debug().Int("accounts", len(accounts)).Str("url", c.CurrentURL()).Msg("Fetched accounts")
	return accounts, nil
}

// GetAccountData fetches only the data of the accounts at keys, in order.
func (c *Client) GetAccountData(ctx context.Context, keys []svm.Pubkey) ([][]byte, error) {
	accounts, err := c.GetAccounts(ctx, keys)
	if err != nil {
		return nil, err
	}
	data := make([][]byte, len(accounts))
	for i, acc := range accounts {
		data[i] = acc.Data
	}
	return data, nil
}
