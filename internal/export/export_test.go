package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/history"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

var day = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

// Helper function to generate test trades
func generateTestTrades() []history.TradeRecord {
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	trader := solana.MustPublicKeyFromBase58("GzXpRdSJRrd9qqbigtawUFAqjf39inX5Zju7sZDSpdJx")
	return []history.TradeRecord{
		{Seq: 4, Time: day.Add(13*time.Hour + 5*time.Minute), Mint: mint, Trader: trader, IsBuy: false, SolAmount: 500_000_000, TokenAmount: 10_000_000, Fee: 5_000_000, VirtualSol: 31_000_000_000, VirtualToken: 1_038_000_000_000_000},
		{Seq: 1, Time: day.Add(9 * time.Hour), Mint: mint, Trader: trader, IsBuy: true, SolAmount: 1_000_000_000, TokenAmount: 34_000_000, Fee: 10_000_000, VirtualSol: 31_000_000_000, VirtualToken: 1_038_000_000_000_000},
		{Seq: 2, Time: day.Add(9*time.Hour + 30*time.Minute), Mint: mint, Trader: trader, IsBuy: true, SolAmount: 2_000_000_000, TokenAmount: 60_000_000, Fee: 20_000_000, VirtualSol: 33_000_000_000, VirtualToken: 975_000_000_000_000},
		{Seq: 7, Time: day.Add(30 * time.Hour), Mint: mint, Trader: trader, IsBuy: true, SolAmount: 100, TokenAmount: 3, VirtualSol: 33_000_000_100, VirtualToken: 975_000_000_000_000},
	}
}

func TestWriteCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	var buf bytes.Buffer
	n, err := exporter.Write(&buf, generateTestTrades(), Options{Format: FormatCSV})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}
	if n != 4 {
		t.Fatalf("Expected 4 trades, got %d", n)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Expected header and 4 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeaders, ",") {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	// oldest first
	if rows[1][0] != "1" || rows[4][0] != "7" {
		t.Errorf("Rows not sorted by sequence: %v ... %v", rows[1][0], rows[4][0])
	}
	if rows[1][4] != "buy" || rows[1][6] != "1" || rows[1][8] != "34" {
		t.Errorf("Unexpected first row: %v", rows[1])
	}
	want := launchpad.SpotPrice(&launchpad.BondingCurve{VirtualSol: 31_000_000_000, VirtualToken: 1_038_000_000_000_000}, 6).StringFixed(12)
	if rows[1][10] != want {
		t.Errorf("Expected price %s, got %s", want, rows[1][10])
	}
}

func TestTradeExportFilters(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	trades := generateTestTrades()

	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"all", Options{Format: FormatCSV}, 4},
		{"sells", Options{Format: FormatCSV, Side: "sell"}, 1},
		{"buys", Options{Format: FormatCSV, Side: "buy"}, 3},
		{"window", Options{Format: FormatCSV, StartTime: day.Add(9 * time.Hour), EndTime: day.Add(13 * time.Hour)}, 2},
		{"empty window", Options{Format: FormatCSV, StartTime: day.Add(48 * time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := exporter.Write(&buf, trades, tt.opts)
			if err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("Expected %d trades, got %d", tt.want, n)
			}
		})
	}

	if _, err := exporter.Write(&bytes.Buffer{}, trades, Options{Format: "xml"}); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestWriteJSON(t *testing.T) {
	exporter := NewExporter(zap.NewNop())

	var buf bytes.Buffer
	if _, err := exporter.Write(&buf, generateTestTrades(), Options{Format: FormatJSON, EndTime: day.Add(24 * time.Hour)}); err != nil {
		t.Fatalf("Failed to export JSON: %v", err)
	}

	var rep Report
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if rep.TradeCount != 3 || len(rep.Trades) != 3 {
		t.Fatalf("Expected 3 trades, got %d", rep.TradeCount)
	}
	if rep.Summary.Buys != 2 || rep.Summary.Sells != 1 {
		t.Errorf("Unexpected summary: %+v", rep.Summary)
	}
	if rep.VolumeSol != "3.5" {
		t.Errorf("Expected volume 3.5 SOL, got %s", rep.VolumeSol)
	}
	if len(rep.Hourly) != 2 || rep.Hourly[0].Hour != 9 || rep.Hourly[0].TradeCount != 2 || rep.Hourly[1].Hour != 13 {
		t.Errorf("Unexpected hourly breakdown: %+v", rep.Hourly)
	}
	if rep.FirstTrade == nil || !rep.FirstTrade.Equal(day.Add(9*time.Hour)) {
		t.Errorf("Unexpected first trade time: %v", rep.FirstTrade)
	}
}

func TestExportFile(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	dir := t.TempDir()
	trades := generateTestTrades()
	mint := trades[0].Mint.String()

	path, err := exporter.ExportFile(mint, trades, Options{Format: FormatCSV, Side: "sell", OutputDir: dir})
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	if !strings.HasPrefix(path, dir) || !strings.Contains(path, "trades_"+mint[:8]+"_sell_") || !strings.HasSuffix(path, ".csv") {
		t.Errorf("Unexpected file name: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("Export file missing or empty: %v", err)
	}

	if _, err := exporter.ExportFile(mint, trades, Options{Format: FormatCSV, StartTime: day.Add(72 * time.Hour), OutputDir: dir}); err == nil {
		t.Error("Expected error when nothing matches")
	}
}

func TestDailyReportExport(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	dir := t.TempDir()

	path, err := exporter.ExportDailyReport(generateTestTrades(), day.Add(5*time.Hour), dir)
	if err != nil {
		t.Fatalf("Failed to export daily report: %v", err)
	}
	if !strings.HasSuffix(path, "daily_report_20240610.json") {
		t.Fatalf("Unexpected report path: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var rep Report
	if err := json.Unmarshal(content, &rep); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if rep.TradeCount != 3 {
		t.Errorf("Expected 3 trades on the day, got %d", rep.TradeCount)
	}

	path, err = exporter.ExportDailyReport(generateTestTrades(), day.Add(-24*time.Hour), dir)
	if err != nil || path != "" {
		t.Errorf("Expected no report for an empty day, got %q, %v", path, err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "json"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("Expected error for xlsx")
	}
}
