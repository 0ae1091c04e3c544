package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laurent357/Sniping-bot/internal/sniping"
	"github.com/laurent357/Sniping-bot/internal/types"
)

func sampleRecords(t *testing.T) []sniping.TransactionRecord {
	t.Helper()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return []sniping.TransactionRecord{
		{
			ID:              "tx-1",
			Signature:       "SIG1",
			TokenAddress:    "TokenAAAA1111111111111111111111111111111111",
			PoolID:          "pool-1",
			StrategyName:    "default",
			AmountSOL:       decimal.NewFromFloat(1.5),
			EstimatedProfit: decimal.NewFromFloat(3.2),
			Status:          types.StatusCompleted,
			CreatedAt:       base,
			UpdatedAt:       base.Add(time.Minute),
		},
		{
			ID:              "tx-2",
			Signature:       "SIG2",
			TokenAddress:    "TokenBBBB2222222222222222222222222222222222",
			PoolID:          "pool-2",
			StrategyName:    "default",
			AmountSOL:       decimal.NewFromFloat(0.5),
			EstimatedProfit: decimal.NewFromFloat(2.1),
			Status:          types.StatusFailed,
			Error:           "blockhash expired",
			CreatedAt:       base.Add(time.Hour),
			UpdatedAt:       base.Add(time.Hour),
		},
	}
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	exporter := NewLedgerExporter(zaptest.NewLogger(t))

	path, err := exporter.Export(sampleRecords(t), Options{
		Format:    FormatCSV,
		OutputDir: dir,
	})
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 records

	assert.Equal(t, csvHeaders(), rows[0])
	assert.Equal(t, "SIG1", rows[1][1])
	assert.Equal(t, "1.5", rows[1][5])
	assert.Equal(t, "blockhash expired", rows[2][8])
}

func TestExportJSONSummary(t *testing.T) {
	dir := t.TempDir()
	exporter := NewLedgerExporter(zaptest.NewLogger(t))

	path, err := exporter.Export(sampleRecords(t), Options{
		Format:    FormatJSON,
		OutputDir: dir,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload struct {
		RecordCount int                         `json:"record_count"`
		Records     []sniping.TransactionRecord `json:"records"`
		Summary     Summary                     `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))

	assert.Equal(t, 2, payload.RecordCount)
	assert.Equal(t, 1, payload.Summary.Completed)
	assert.Equal(t, 1, payload.Summary.Failed)
	assert.Equal(t, 2, payload.Summary.UniqueTokens)
	assert.True(t, payload.Summary.TotalAmountSOL.Equal(decimal.NewFromFloat(2)))
	// Records sorted oldest-first for the file.
	assert.Equal(t, "tx-1", payload.Records[0].ID)
}

func TestExportFilters(t *testing.T) {
	dir := t.TempDir()
	exporter := NewLedgerExporter(zaptest.NewLogger(t))
	records := sampleRecords(t)

	path, err := exporter.Export(records, Options{
		Format:       FormatJSON,
		StatusFilter: types.StatusFailed,
		OutputDir:    dir,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload struct {
		Records []sniping.TransactionRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "tx-2", payload.Records[0].ID)
}

func TestExportNoMatches(t *testing.T) {
	exporter := NewLedgerExporter(zaptest.NewLogger(t))

	_, err := exporter.Export(sampleRecords(t), Options{
		Format:      FormatCSV,
		TokenFilter: "UnknownToken",
		OutputDir:   t.TempDir(),
	})
	require.Error(t, err)
}

func TestExportUnsupportedFormat(t *testing.T) {
	exporter := NewLedgerExporter(zaptest.NewLogger(t))

	_, err := exporter.Export(sampleRecords(t), Options{
		Format:    Format("xml"),
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
}
