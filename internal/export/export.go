// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/history"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported format: %q", s)
}

// Options configures the export behavior
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	Side      string // "buy", "sell" or empty for both
	Decimals  uint8  // token decimals for display columns
	OutputDir string
}

// Exporter writes trade history for offline analysis.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates an Exporter.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

var csvHeaders = []string{
	"seq", "time", "mint", "trader", "side",
	"sol_lamports", "sol", "token_amount", "tokens",
	"fee_lamports", "price_sol", "virtual_sol", "virtual_token",
}

// Write filters records, sorts them oldest first and encodes them to w.
// It returns the number of records written.
func (e *Exporter) Write(w io.Writer, records []history.TradeRecord, opts Options) (int, error) {
	filtered := filter(records, opts)
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Seq < filtered[j].Seq })

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(w, filtered, decimalsOf(opts))
	case FormatJSON:
		err = writeJSON(w, filtered, decimalsOf(opts))
	default:
		err = fmt.Errorf("unsupported format: %q", opts.Format)
	}
	if err != nil {
		return 0, err
	}
	return len(filtered), nil
}

// ExportFile writes the trades of mint to a new file under opts.OutputDir
// and returns its path.
func (e *Exporter) ExportFile(mint string, records []history.TradeRecord, opts Options) (string, error) {
	if len(filter(records, opts)) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename(mint, opts))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	n, err := e.Write(file, records, opts)
	if err != nil {
		return "", err
	}

	e.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", n),
		zap.String("format", string(opts.Format)))
	return outputPath, nil
}

func decimalsOf(opts Options) uint8 {
	if opts.Decimals == 0 {
		return launchpad.DefaultDecimals
	}
	return opts.Decimals
}

func filter(records []history.TradeRecord, opts Options) []history.TradeRecord {
	out := make([]history.TradeRecord, 0, len(records))
	for _, r := range records {
		if !opts.StartTime.IsZero() && r.Time.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && !r.Time.Before(opts.EndTime) {
			continue
		}
		if opts.Side != "" && r.Side() != opts.Side {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filename(mint string, opts Options) string {
	prefix := "trades"
	if len(mint) >= 8 {
		prefix += "_" + mint[:8]
	}
	if opts.Side != "" {
		prefix += "_" + opts.Side
	}
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), opts.Format)
}

// price is the spot price right after the trade.
func price(r history.TradeRecord, decimals uint8) decimal.Decimal {
	return launchpad.SpotPrice(&launchpad.BondingCurve{
		VirtualSol:   r.VirtualSol,
		VirtualToken: r.VirtualToken,
	}, decimals)
}

func writeCSV(w io.Writer, records []history.TradeRecord, decimals uint8) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.FormatUint(r.Seq, 10),
			r.Time.UTC().Format(time.RFC3339),
			r.Mint.String(),
			r.Trader.String(),
			r.Side(),
			strconv.FormatUint(r.SolAmount, 10),
			launchpad.LamportsToSol(r.SolAmount).String(),
			strconv.FormatUint(r.TokenAmount, 10),
			launchpad.TokenUnits(r.TokenAmount, decimals).String(),
			strconv.FormatUint(r.Fee, 10),
			price(r, decimals).StringFixed(12),
			strconv.FormatUint(r.VirtualSol, 10),
			strconv.FormatUint(r.VirtualToken, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Report is the JSON export document.
type Report struct {
	ExportTime time.Time             `json:"export_time"`
	TradeCount int                   `json:"trade_count"`
	Summary    history.Summary       `json:"summary"`
	VolumeSol  string                `json:"volume_sol"`
	FirstTrade *time.Time            `json:"first_trade,omitempty"`
	LastTrade  *time.Time            `json:"last_trade,omitempty"`
	LastPrice  string                `json:"last_price_sol,omitempty"`
	Hourly     []HourlyStats         `json:"hourly_breakdown"`
	Trades     []history.TradeRecord `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour       int    `json:"hour"`
	TradeCount int    `json:"trade_count"`
	BuyCount   int    `json:"buy_count"`
	SellCount  int    `json:"sell_count"`
	Volume     uint64 `json:"volume_lamports"`
}

func buildReport(records []history.TradeRecord, decimals uint8) Report {
	s := history.Summarize(records)
	rep := Report{
		ExportTime: time.Now().UTC(),
		TradeCount: len(records),
		Summary:    s,
		VolumeSol:  launchpad.LamportsToSol(s.BuyVolume).Add(launchpad.LamportsToSol(s.SellVolume)).String(),
		Hourly:     hourlyBreakdown(records),
		Trades:     records,
	}
	if n := len(records); n > 0 {
		first, last := records[0].Time, records[n-1].Time
		rep.FirstTrade, rep.LastTrade = &first, &last
		rep.LastPrice = price(records[n-1], decimals).StringFixed(12)
	}
	return rep
}

func writeJSON(w io.Writer, records []history.TradeRecord, decimals uint8) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(buildReport(records, decimals)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func hourlyBreakdown(records []history.TradeRecord) []HourlyStats {
	var byHour [24]HourlyStats
	for _, r := range records {
		h := &byHour[r.Time.UTC().Hour()]
		h.TradeCount++
		h.Volume += r.SolAmount
		if r.IsBuy {
			h.BuyCount++
		} else {
			h.SellCount++
		}
	}
	breakdown := []HourlyStats{}
	for hour := range byHour {
		if byHour[hour].TradeCount > 0 {
			byHour[hour].Hour = hour
			breakdown = append(breakdown, byHour[hour])
		}
	}
	return breakdown
}

// ExportDailyReport writes the trades of one UTC day as a JSON report.
// It returns "" when the day has no trades.
func (e *Exporter) ExportDailyReport(records []history.TradeRecord, date time.Time, outputDir string) (string, error) {
	date = date.UTC()
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	opts := Options{
		Format:    FormatJSON,
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
		OutputDir: outputDir,
	}

	day := filter(records, opts)
	if len(day) == 0 {
		e.logger.Info("No trades for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if _, err := e.Write(file, day, opts); err != nil {
		return "", err
	}

	e.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(day)))
	return outputPath, nil
}
