// internal/dex/program.go
package dex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// accountRecord is the raw record a program venue hands to its decoder:
// the account pubkey plus the base64-encoded account data.
type accountRecord struct {
	Pubkey string `json:"pubkey"`
	Data   []byte `json:"data"`
}

// rpcClient is the slice of the solana RPC surface program venues use.
type rpcClient interface {
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// programVenue polls every account owned by one AMM program. Pool state
// layouts differ per program, so each venue pairs with its own decoder.
type programVenue struct {
	name      string
	programID solana.PublicKey
	client    rpcClient
	logger    *zap.Logger
}

func newProgramVenue(name string, programID solana.PublicKey, client rpcClient, logger *zap.Logger) *programVenue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &programVenue{
		name:      name,
		programID: programID,
		client:    client,
		logger:    logger.Named(name),
	}
}

// Name implements market.Venue.
func (v *programVenue) Name() string { return v.name }

// FetchPools implements market.Venue by listing the program accounts.
func (v *programVenue) FetchPools(ctx context.Context) ([][]byte, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}
	accounts, err := v.client.GetProgramAccountsWithOpts(ctx, v.programID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s program accounts: %w", v.name, err)
	}

	records := make([][]byte, 0, len(accounts))
	for _, account := range accounts {
		if account == nil || account.Account == nil {
			continue
		}
		raw, err := json.Marshal(accountRecord{
			Pubkey: account.Pubkey.String(),
			Data:   account.Account.Data.GetBinary(),
		})
		if err != nil {
			v.logger.Debug("skipping unencodable account", zap.Error(err))
			continue
		}
		records = append(records, raw)
	}
	return records, nil
}

// mintAt extracts a base58 mint from fixed-layout account data.
func mintAt(data []byte, offset int) (string, error) {
	if len(data) < offset+32 {
		return "", fmt.Errorf("account data too short: %d bytes, need %d", len(data), offset+32)
	}
	return solana.PublicKeyFromBytes(data[offset : offset+32]).String(), nil
}

func decodeRecord(raw []byte) (*accountRecord, error) {
	var record accountRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("malformed account record: %w", err)
	}
	if record.Pubkey == "" {
		return nil, fmt.Errorf("account record missing pubkey")
	}
	return &record, nil
}
