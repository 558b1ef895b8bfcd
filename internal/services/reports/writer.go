// Package reports formats scan output into the persisted CSV/JSON tables.
// Pure formatting; all decision logic happens upstream.
package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/usecase"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// Writer emits scan reports under a base directory.
type Writer struct {
	dir           string
	portfolioSize int
	l             *logger.Logger
}

func NewWriter(dir string, portfolioSize int, l *logger.Logger) *Writer {
	if portfolioSize <= 0 {
		portfolioSize = 10
	}
	return &Writer{dir: dir, portfolioSize: portfolioSize, l: l}
}

// WriteAll emits every table for one scan run.
func (w *Writer) WriteAll(report *usecase.ScanReport) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("reports dir: %w", err)
	}

	for sym, bars := range report.Enriched {
		if err := w.WriteEnrichedCSV(sym, bars); err != nil {
			return err
		}
	}
	if err := w.WriteComparisonCSV("playbook_comparison.csv", report.Results); err != nil {
		return err
	}
	if err := w.WriteComparisonCSV("ultra_confluence_4of4.csv",
		usecase.FilterTier(report.Results, models.TierUltra)); err != nil {
		return err
	}
	if err := w.WriteComparisonCSV("super_confluence_3of4.csv",
		usecase.FilterTier(report.Results, models.TierSuper)); err != nil {
		return err
	}
	if err := w.WritePortfolioCSV(usecase.BuildPortfolio(report.Results, report.Enriched, w.portfolioSize)); err != nil {
		return err
	}
	if err := w.writeJSON("agreement_analysis.json", report.Agreement); err != nil {
		return err
	}
	if report.Rotation != nil {
		if err := w.WriteSectorRotationCSV(report.Rotation); err != nil {
			return err
		}
	}
	if report.Conditions != nil {
		if err := w.writeJSON("market_conditions.json", report.Conditions); err != nil {
			return err
		}
	}
	if w.l != nil {
		w.l.Info("reports written",
			logger.String("dir", w.dir),
			logger.Int("symbols", len(report.Enriched)),
			logger.Int("results", len(report.Results)),
		)
	}
	return nil
}

// WriteEnrichedCSV writes one row per enriched bar. Undefined numeric fields
// serialize as empty cells.
func (w *Writer) WriteEnrichedCSV(symbol string, bars []models.EnrichedBar) error {
	rows := [][]string{{
		"Date", "Open", "High", "Low", "Close", "Volume",
		"ATR", "FastSMA", "SlowSMA", "RSI", "Bias",
		"GeoLevel", "PhiLevel", "PriceConfluence", "TimeConfluence",
	}}
	for _, b := range bars {
		rows = append(rows, []string{
			util.DayKey(b.Date),
			num(b.Open), num(b.High), num(b.Low), num(b.Close),
			strconv.FormatInt(b.Volume, 10),
			optNum(b.ATR), optNum(b.FastSMA), optNum(b.SlowSMA),
			num(b.RSI), string(b.Bias),
			num(b.GeoLevel), num(b.PhiLevel),
			flag(b.PriceConfluence), flag(b.TimeConfluence),
		})
	}
	return w.writeCSV(symbol+"_enriched.csv", rows)
}

// WriteComparisonCSV writes one row per consensus result with each agent's
// raw vote alongside the aggregate.
func (w *Writer) WriteComparisonCSV(name string, results []*models.ConsensusResult) error {
	header := []string{"Date", "Symbol", "Consensus", "Tier", "Confidence",
		"CallVotes", "PutVotes", "HoldVotes",
		"Entry", "Stop", "Target1", "Target2", "Target3", "Approved"}
	if len(results) > 0 {
		for _, a := range results[0].Agents {
			header = append(header, a.Agent+" Signal", a.Agent+" Confidence")
		}
	}
	rows := [][]string{header}
	for _, r := range results {
		row := []string{
			util.DayKey(r.Date), r.Symbol, string(r.Signal), string(r.Tier),
			num(r.Confidence),
			strconv.Itoa(r.CallVotes), strconv.Itoa(r.PutVotes), strconv.Itoa(r.HoldVotes),
			num(r.Entry), num(r.Stop), num(r.Target1), num(r.Target2), num(r.Target3),
			strconv.FormatBool(r.Approved),
		}
		for _, a := range r.Agents {
			row = append(row, string(a.Signal), num(a.Confidence))
		}
		rows = append(rows, row)
	}
	return w.writeCSV(name, rows)
}

// WritePortfolioCSV writes the open-position table. Exit fields and PNL are
// intentionally blank; a downstream process fills them.
func (w *Writer) WritePortfolioCSV(entries []models.PortfolioEntry) error {
	rows := [][]string{{
		"Symbol", "Signal", "EntryDate", "ExitDate", "EntryPrice", "ExitPrice",
		"PNL", "EntryLow", "EntryHigh", "Stop", "Target1", "Target2",
		"ExpiryDate", "Status",
	}}
	for _, e := range entries {
		rows = append(rows, []string{
			e.Symbol, string(e.Signal), util.DayKey(e.EntryDate), "",
			num(e.EntryPrice), "", "",
			num(e.EntryLow), num(e.EntryHigh),
			num(e.Stop), num(e.Target1), num(e.Target2),
			util.DayKey(e.ExpiryDate), e.Status,
		})
	}
	return w.writeCSV("portfolio.csv", rows)
}

// WriteSectorRotationCSV writes the cross-symbol rotation table with the
// summary classification on a trailing row.
func (w *Writer) WriteSectorRotationCSV(sr *models.SectorRotation) error {
	rows := [][]string{{
		"Symbol", "Price", "WeekChange", "MonthChange", "RSI", "Bias", "Class", "Rating",
	}}
	for _, r := range sr.Rows {
		rows = append(rows, []string{
			r.Symbol, num(r.Price), num(r.WeekChange), num(r.MonthChange),
			num(r.RSI), string(r.Bias), string(r.Class), r.Rating,
		})
	}
	rows = append(rows, []string{
		"SUMMARY", "", num(sr.CyclicalAvg), num(sr.DefensiveAvg), "", "",
		sr.Rotation, sr.Description,
	})
	return w.writeCSV("sector_rotation.csv", rows)
}

func (w *Writer) writeCSV(name string, rows [][]string) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeJSON(name string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, name), b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
