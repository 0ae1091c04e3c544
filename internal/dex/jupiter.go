// internal/dex/jupiter.go
package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/analyzer"
	"github.com/laurent357/Sniping-bot/internal/cache"
	"github.com/laurent357/Sniping-bot/internal/market"
	"github.com/laurent357/Sniping-bot/internal/ratelimit"
)

const tokenListCacheKey = "jupiter_token_list"

// TokenInfo is one entry from the Jupiter token list.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// JupiterClient is both the pool feed and the quote source for the
// Jupiter aggregator. It retries transient HTTP failures and keeps the
// token list in a short-lived cache.
type JupiterClient struct {
	apiURL       string
	tokenListURL string
	http         *http.Client
	limiter      *ratelimit.Limiter
	tokens       *cache.ResponseCache
	logger       *zap.Logger
	maxTries     uint
}

// NewJupiterClient builds a client for the Jupiter v6 API. The limiter
// is optional; when set, every request takes a permit first.
func NewJupiterClient(apiURL, tokenListURL string, limiter *ratelimit.Limiter, tokenTTL time.Duration, logger *zap.Logger) *JupiterClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JupiterClient{
		apiURL:       apiURL,
		tokenListURL: tokenListURL,
		http:         &http.Client{Timeout: defaultHTTPTimeout},
		limiter:      limiter,
		tokens:       cache.New(tokenTTL),
		logger:       logger.Named("jupiter"),
		maxTries:     3,
	}
}

// Name implements market.Venue.
func (c *JupiterClient) Name() string { return VenueJupiter }

// FetchPools returns the current pool records from the price feed, one
// raw JSON record per pool.
func (c *JupiterClient) FetchPools(ctx context.Context) ([][]byte, error) {
	body, err := c.get(ctx, c.apiURL+"/price")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jupiter pools: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse jupiter pool list: %w", err)
	}

	out := make([][]byte, len(records))
	for i, record := range records {
		out[i] = record
	}
	return out, nil
}

// jupiterQuote mirrors the fields of a v6 quote response this client
// consumes. OutAmount arrives as a decimal string.
type jupiterQuote struct {
	OutAmount      string          `json:"outAmount"`
	PriceImpactPct decimal.Decimal `json:"priceImpactPct"`
}

// Quote implements analyzer.Quoter with a probe swap quote.
func (c *JupiterClient) Quote(ctx context.Context, inputMint, outputMint string, amountLamports uint64) (*analyzer.QuoteResult, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amountLamports, 10))
	params.Set("slippageBps", strconv.Itoa(defaultQuoteSlippageBps))

	body, err := c.get(ctx, c.apiURL+"/quote?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jupiter quote: %w", err)
	}

	var quote jupiterQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to parse jupiter quote: %w", err)
	}
	outAmount, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid outAmount in jupiter quote: %w", err)
	}
	return &analyzer.QuoteResult{
		PriceImpactPct: quote.PriceImpactPct,
		OutAmount:      outAmount,
	}, nil
}

// TokenList returns the Jupiter token registry, served from cache while
// fresh.
func (c *JupiterClient) TokenList(ctx context.Context) ([]TokenInfo, error) {
	if cached, ok := c.tokens.Get(tokenListCacheKey); ok {
		return cached.([]TokenInfo), nil
	}

	body, err := c.get(ctx, c.tokenListURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jupiter token list: %w", err)
	}

	var tokens []TokenInfo
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse jupiter token list: %w", err)
	}
	c.tokens.Set(tokenListCacheKey, tokens)
	c.logger.Debug("token list refreshed", zap.Int("tokens", len(tokens)))
	return tokens, nil
}

// get performs one GET with rate limiting and retry on transient
// failures. 4xx responses are not retried.
func (c *JupiterClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("jupiter api status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("jupiter api status %d: %s", resp.StatusCode, body))
		}
		return body, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries))
}

// jupiterPool is the pool record shape on the price feed.
type jupiterPool struct {
	ID           string          `json:"id"`
	TokenAddress string          `json:"token_address"`
	InputMint    string          `json:"input_mint"`
	OutputMint   string          `json:"output_mint"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
	Volume24hUSD decimal.Decimal `json:"volume_24h_usd"`
}

// JupiterDecoder parses price feed records into pool snapshots.
type JupiterDecoder struct{}

// Parse implements market.Decoder.
func (JupiterDecoder) Parse(raw []byte) (*market.PoolSnapshot, error) {
	var pool jupiterPool
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, fmt.Errorf("malformed jupiter pool record: %w", err)
	}
	if pool.ID == "" || pool.TokenAddress == "" {
		return nil, fmt.Errorf("jupiter pool record missing id or token address")
	}
	return &market.PoolSnapshot{
		Venue:        VenueJupiter,
		PoolID:       pool.ID,
		TokenA:       pool.TokenAddress,
		TokenB:       pool.InputMint,
		PriceUSD:     pool.PriceUSD,
		LiquidityUSD: pool.LiquidityUSD,
		Volume24hUSD: pool.Volume24hUSD,
		LastSeen:     time.Now(),
	}, nil
}
