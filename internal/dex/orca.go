// internal/dex/orca.go
package dex

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/market"
)

// OrcaProgramID is the Orca token swap program.
var OrcaProgramID = solana.MustPublicKeyFromBase58("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")

// Orca token swap layout: version, isInitialized, bumpSeed, then the
// token program, both vaults and the pool mint before the mint pair.
const (
	orcaMintAOffset = 131
	orcaMintBOffset = 163
)

// NewOrcaVenue polls the Orca swap program for pool accounts.
func NewOrcaVenue(client rpcClient, logger *zap.Logger) *programVenue {
	return newProgramVenue(VenueOrca, OrcaProgramID, client, logger)
}

// OrcaDecoder extracts the mint pair from an Orca token swap account.
type OrcaDecoder struct{}

// Parse implements market.Decoder.
func (OrcaDecoder) Parse(raw []byte) (*market.PoolSnapshot, error) {
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	mintA, err := mintAt(record.Data, orcaMintAOffset)
	if err != nil {
		return nil, fmt.Errorf("orca pool %s: %w", record.Pubkey, err)
	}
	mintB, err := mintAt(record.Data, orcaMintBOffset)
	if err != nil {
		return nil, fmt.Errorf("orca pool %s: %w", record.Pubkey, err)
	}
	return &market.PoolSnapshot{
		Venue:    VenueOrca,
		PoolID:   record.Pubkey,
		TokenA:   mintA,
		TokenB:   mintB,
		LastSeen: time.Now(),
	}, nil
}
