// ABOUTME: This file implements the cross-video aggregation engine producing summary reports.
// ABOUTME: Macro items are deduplicated per (indicator, date); stock views merge latest-wins per symbol.
package aggregate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"finance-insight/config"
	"finance-insight/domain"
	"finance-insight/store"
)

// mostMentionedLimit bounds the symbol leaderboard in each report.
const mostMentionedLimit = 5

// Engine recomputes summary reports from the stored analysis records. Every
// run scans its window from scratch; nothing is carried over between runs.
type Engine struct {
	artifacts *store.ArtifactStore
	cfg       config.AggregateConfig
	logger    *slog.Logger
}

func NewEngine(artifacts *store.ArtifactStore, cfg config.AggregateConfig, logger *slog.Logger) *Engine {
	return &Engine{artifacts: artifacts, cfg: cfg, logger: logger}
}

type stockCandidate struct {
	item    domain.StockItem
	videoID string
}

// Aggregate merges all analysis records inside the macro and stock windows
// ending at asOf into one report and persists it. Non-positive window sizes
// and an empty asOf fall back to the configured defaults. Malformed records
// are skipped and counted, never fatal.
func (e *Engine) Aggregate(ctx context.Context, macroDays, stockDays int, asOf string) (*domain.SummaryReport, error) {
	if macroDays <= 0 {
		macroDays = e.cfg.MacroWindowDays
	}
	if stockDays <= 0 {
		stockDays = e.cfg.StockWindowDays
	}
	if asOf == "" {
		asOf = domain.Today()
	}
	asOfDay, err := domain.ParseDay(asOf)
	if err != nil {
		return nil, fmt.Errorf("invalid as-of date %q: %w", asOf, err)
	}

	macroStart := asOfDay.AddDate(0, 0, -(macroDays - 1)).Format(domain.DayFormat)
	stockStart := asOfDay.AddDate(0, 0, -(stockDays - 1)).Format(domain.DayFormat)
	scanStart := macroStart
	if stockStart < scanStart {
		scanStart = stockStart
	}

	entries, err := e.artifacts.List(scanStart, asOf, store.CategoryAnalysis)
	if err != nil {
		return nil, fmt.Errorf("scan analysis window: %w", err)
	}

	var (
		skipped    int
		mentions   = make(map[string]int)
		macroSeen  = make(map[string]int) // (indicator, date) -> index in macroWindow
		macroItems []domain.MacroItem
		stocks     = make(map[string]stockCandidate)
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := e.artifacts.ReadAnalysis(entry.Date, entry.Key)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRecord) {
				skipped++
				e.logger.Warn("skipping malformed analysis record",
					slog.String("path", entry.Path),
					slog.String("error", err.Error()))
				continue
			}
			return nil, fmt.Errorf("read %s: %w", entry.Path, err)
		}

		for _, m := range record.MacroItems {
			if m.Date < macroStart || m.Date > asOf {
				continue
			}
			key := m.Indicator + "|" + m.Date
			if idx, dup := macroSeen[key]; dup {
				if macroItems[idx].Description == "" && m.Description != "" {
					macroItems[idx] = m
				}
				continue
			}
			macroSeen[key] = len(macroItems)
			macroItems = append(macroItems, m)
		}

		for _, s := range record.StockItems {
			if s.Symbol == "" || s.AsOfDate < stockStart || s.AsOfDate > asOf {
				continue
			}
			mentions[s.Symbol]++
			cur, exists := stocks[s.Symbol]
			if !exists ||
				s.AsOfDate > cur.item.AsOfDate ||
				(s.AsOfDate == cur.item.AsOfDate && record.VideoID > cur.videoID) {
				stocks[s.Symbol] = stockCandidate{item: s, videoID: record.VideoID}
			}
		}
	}

	sort.SliceStable(macroItems, func(i, j int) bool {
		if macroItems[i].Date != macroItems[j].Date {
			return macroItems[i].Date > macroItems[j].Date
		}
		return macroItems[i].Indicator < macroItems[j].Indicator
	})
	if macroItems == nil {
		macroItems = []domain.MacroItem{}
	}

	stockWindow := make(map[string]domain.StockItem, len(stocks))
	counts := domain.SummaryCounts{SkippedRecords: skipped}
	for symbol, cand := range stocks {
		stockWindow[symbol] = cand.item
		switch cand.item.Action {
		case domain.ActionBuy:
			counts.BuyCount++
		case domain.ActionSell:
			counts.SellCount++
		}
	}
	counts.MacroCount = len(macroItems)
	counts.StockCount = len(stockWindow)

	report := &domain.SummaryReport{
		AsOf:            asOf,
		MacroWindowDays: macroDays,
		StockWindowDays: stockDays,
		MacroWindow:     macroItems,
		StockWindow:     stockWindow,
		MostMentioned:   rankMentions(mentions),
		Counts:          counts,
	}
	report.ReportID = deriveReportID(report)
	report.GeneratedAt = time.Now()

	key := fmt.Sprintf("%s%s.json", store.SummaryReportPrefix, report.GeneratedAt.Format("20060102_150405"))
	path, err := e.artifacts.WriteJSON(asOf, store.CategoryReports, key, report)
	if err != nil {
		return nil, fmt.Errorf("persist summary report: %w", err)
	}

	e.logger.Info("summary report generated",
		slog.String("report_id", report.ReportID),
		slog.String("as_of", asOf),
		slog.Int("macro_items", counts.MacroCount),
		slog.Int("stock_items", counts.StockCount),
		slog.Int("skipped_records", skipped),
		slog.String("path", path))
	return report, nil
}

// deriveReportID hashes the merged content, so repeated runs over the same
// artifact set and window produce the same report identity. Called before
// GeneratedAt is set; map keys marshal in sorted order, keeping the hash
// stable.
func deriveReportID(report *domain.SummaryReport) string {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Sprintf("%s-%d-%d", report.AsOf, report.MacroWindowDays, report.StockWindowDays)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}

// rankMentions orders symbols by mention count, then alphabetically, and
// keeps the top entries.
func rankMentions(mentions map[string]int) []domain.SymbolMention {
	ranked := make([]domain.SymbolMention, 0, len(mentions))
	for symbol, n := range mentions {
		ranked = append(ranked, domain.SymbolMention{Symbol: symbol, Mentions: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Mentions != ranked[j].Mentions {
			return ranked[i].Mentions > ranked[j].Mentions
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if len(ranked) > mostMentionedLimit {
		ranked = ranked[:mostMentionedLimit]
	}
	if len(ranked) == 0 {
		return nil
	}
	return ranked
}
