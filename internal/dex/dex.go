// internal/dex/dex.go
//
// Package dex holds the venue clients the market monitors poll: the
// Jupiter aggregator over HTTP and the Raydium, Orca and Saber programs
// over Solana RPC. Each venue ships with the decoder for its native
// record format.
package dex

import (
	"time"
)

// Venue names as they appear in snapshots and logs.
const (
	VenueJupiter = "jupiter"
	VenueRaydium = "raydium"
	VenueOrca    = "orca"
	VenueSaber   = "saber"
)

const (
	// defaultHTTPTimeout bounds a single venue HTTP request.
	defaultHTTPTimeout = 10 * time.Second
	// defaultQuoteSlippageBps is the slippage tolerance sent with probe
	// quotes, 50 bps = 0.5%.
	defaultQuoteSlippageBps = 50
)
