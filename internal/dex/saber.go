// internal/dex/saber.go
package dex

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/market"
)

// SaberProgramID is the Saber stable swap program.
var SaberProgramID = solana.MustPublicKeyFromBase58("SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ")

// Saber stable swap layout: three flag bytes, five 8-byte amp/ramp
// fields, two admin keys and both token accounts precede the pool mint
// and the mint pair.
const (
	saberMintAOffset = 203
	saberMintBOffset = 235
)

// NewSaberVenue polls the Saber stable swap program for pool accounts.
func NewSaberVenue(client rpcClient, logger *zap.Logger) *programVenue {
	return newProgramVenue(VenueSaber, SaberProgramID, client, logger)
}

// SaberDecoder extracts the mint pair from a Saber stable swap account.
type SaberDecoder struct{}

// Parse implements market.Decoder.
func (SaberDecoder) Parse(raw []byte) (*market.PoolSnapshot, error) {
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	mintA, err := mintAt(record.Data, saberMintAOffset)
	if err != nil {
		return nil, fmt.Errorf("saber pool %s: %w", record.Pubkey, err)
	}
	mintB, err := mintAt(record.Data, saberMintBOffset)
	if err != nil {
		return nil, fmt.Errorf("saber pool %s: %w", record.Pubkey, err)
	}
	return &market.PoolSnapshot{
		Venue:    VenueSaber,
		PoolID:   record.Pubkey,
		TokenA:   mintA,
		TokenB:   mintB,
		LastSeen: time.Now(),
	}, nil
}
