// internal/dex/factory.go
package dex

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/config"
	"github.com/laurent357/Sniping-bot/internal/market"
	"github.com/laurent357/Sniping-bot/internal/ratelimit"
)

// VenueBundle pairs a venue with the decoder for its record format and
// the rate limiter its monitor should poll through.
type VenueBundle struct {
	Venue   market.Venue
	Decoder market.Decoder
	Limiter *ratelimit.Limiter
}

// BuildVenues constructs every supported venue from the configuration.
// The Jupiter client doubles as the analyzer's quote source and the RPC
// pool needs periodic health checks, so both are returned alongside the
// bundles.
func BuildVenues(cfg *config.Config, logger *zap.Logger) (*JupiterClient, *RPCPool, []VenueBundle, error) {
	if len(cfg.RPCList) == 0 {
		return nil, nil, nil, fmt.Errorf("no rpc endpoints configured")
	}
	limiter := ratelimit.New(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Millisecond, logger)
	jupiter := NewJupiterClient(
		cfg.JupiterAPIURL,
		cfg.JupiterTokenList,
		limiter,
		time.Duration(cfg.CacheTTL)*time.Millisecond,
		logger,
	)

	pool, err := NewRPCPool(cfg.RPCList, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	bundles := []VenueBundle{
		{Venue: jupiter, Decoder: JupiterDecoder{}, Limiter: limiter},
		{Venue: NewRaydiumVenue(pool, logger), Decoder: RaydiumDecoder{}, Limiter: limiter},
		{Venue: NewOrcaVenue(pool, logger), Decoder: OrcaDecoder{}, Limiter: limiter},
		{Venue: NewSaberVenue(pool, logger), Decoder: SaberDecoder{}, Limiter: limiter},
	}
	return jupiter, pool, bundles, nil
}
