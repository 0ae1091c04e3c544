// internal/dex/raydium.go
package dex

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/market"
)

// RaydiumProgramID is the Raydium AMM v4 program.
var RaydiumProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// Raydium liquidity state v4 mint offsets.
const (
	raydiumBaseMintOffset  = 400
	raydiumQuoteMintOffset = 432
)

// NewRaydiumVenue polls the Raydium AMM program for pool accounts.
func NewRaydiumVenue(client rpcClient, logger *zap.Logger) *programVenue {
	return newProgramVenue(VenueRaydium, RaydiumProgramID, client, logger)
}

// RaydiumDecoder extracts the mint pair from a Raydium v4 pool account.
// USD metrics require an off-chain price feed and stay zero here; such
// snapshots register the pool without qualifying as opportunities.
type RaydiumDecoder struct{}

// Parse implements market.Decoder.
func (RaydiumDecoder) Parse(raw []byte) (*market.PoolSnapshot, error) {
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	baseMint, err := mintAt(record.Data, raydiumBaseMintOffset)
	if err != nil {
		return nil, fmt.Errorf("raydium pool %s: %w", record.Pubkey, err)
	}
	quoteMint, err := mintAt(record.Data, raydiumQuoteMintOffset)
	if err != nil {
		return nil, fmt.Errorf("raydium pool %s: %w", record.Pubkey, err)
	}
	return &market.PoolSnapshot{
		Venue:    VenueRaydium,
		PoolID:   record.Pubkey,
		TokenA:   baseMint,
		TokenB:   quoteMint,
		LastSeen: time.Now(),
	}, nil
}
