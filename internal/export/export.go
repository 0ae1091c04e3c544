// Package export writes transaction ledger history to CSV or JSON files
// for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/sniping"
	"github.com/laurent357/Sniping-bot/internal/types"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior
type Options struct {
	Format       Format
	StartTime    time.Time
	EndTime      time.Time
	TokenFilter  string                  // filter by token mint
	StatusFilter types.TransactionStatus // empty means all statuses
	OutputDir    string
}

// Summary aggregates the exported records.
type Summary struct {
	TotalRecords         int             `json:"total_records"`
	Completed            int             `json:"completed"`
	Failed               int             `json:"failed"`
	Pending              int             `json:"pending"`
	TotalAmountSOL       decimal.Decimal `json:"total_amount_sol"`
	TotalEstimatedProfit decimal.Decimal `json:"total_estimated_profit"`
	UniqueTokens         int             `json:"unique_tokens"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
}

// LedgerExporter writes transaction records to disk.
type LedgerExporter struct {
	logger *zap.Logger
}

func NewLedgerExporter(logger *zap.Logger) *LedgerExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerExporter{logger: logger.Named("export")}
}

// Export filters, sorts, and writes records according to the options.
// It returns the path of the written file.
func (le *LedgerExporter) Export(records []sniping.TransactionRecord, options Options) (string, error) {
	filtered := le.filter(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no records match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	outputPath := filepath.Join(options.OutputDir, le.filename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = le.writeCSV(filtered, outputPath)
	case FormatJSON:
		err = le.writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	le.logger.Info("ledger exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (le *LedgerExporter) filter(records []sniping.TransactionRecord, options Options) []sniping.TransactionRecord {
	var filtered []sniping.TransactionRecord
	for _, record := range records {
		if !options.StartTime.IsZero() && record.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && record.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.TokenFilter != "" && record.TokenAddress != options.TokenFilter {
			continue
		}
		if options.StatusFilter != "" && record.Status != options.StatusFilter {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

func (le *LedgerExporter) filename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "transactions_all"
	if options.StatusFilter != "" {
		prefix = "transactions_" + string(options.StatusFilter)
	}
	if options.TokenFilter != "" && len(options.TokenFilter) >= 8 {
		prefix += "_" + options.TokenFilter[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{
		"id", "signature", "token_address", "pool_id", "strategy",
		"amount_sol", "estimated_profit", "status", "error",
		"created_at", "updated_at",
	}
}

func csvRow(record sniping.TransactionRecord) []string {
	return []string{
		record.ID,
		record.Signature,
		record.TokenAddress,
		record.PoolID,
		record.StrategyName,
		record.AmountSOL.String(),
		record.EstimatedProfit.String(),
		string(record.Status),
		record.Error,
		record.CreatedAt.Format(time.RFC3339),
		record.UpdatedAt.Format(time.RFC3339),
	}
}

func (le *LedgerExporter) writeCSV(records []sniping.TransactionRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(csvRow(record)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

func (le *LedgerExporter) writeJSON(records []sniping.TransactionRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	payload := struct {
		ExportTime  time.Time                   `json:"export_time"`
		RecordCount int                         `json:"record_count"`
		Records     []sniping.TransactionRecord `json:"records"`
		Summary     Summary                     `json:"summary"`
	}{
		ExportTime:  time.Now(),
		RecordCount: len(records),
		Records:     records,
		Summary:     le.summarize(records),
	}

	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (le *LedgerExporter) summarize(records []sniping.TransactionRecord) Summary {
	summary := Summary{TotalRecords: len(records)}
	if len(records) == 0 {
		return summary
	}

	summary.StartDate = records[0].CreatedAt
	summary.EndDate = records[len(records)-1].CreatedAt

	tokens := make(map[string]struct{})
	for _, record := range records {
		tokens[record.TokenAddress] = struct{}{}
		summary.TotalAmountSOL = summary.TotalAmountSOL.Add(record.AmountSOL)
		summary.TotalEstimatedProfit = summary.TotalEstimatedProfit.Add(record.EstimatedProfit)

		switch record.Status {
		case types.StatusCompleted:
			summary.Completed++
		case types.StatusFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}
	summary.UniqueTokens = len(tokens)
	return summary
}
