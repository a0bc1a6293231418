package domain

import (
	"strings"
	"time"
)

// Action is the trading stance attached to a stock mention.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionWatch Action = "watch"
)

// MacroItem is one macroeconomic data point extracted from a video.
type MacroItem struct {
	Indicator   string `json:"indicator"`
	Value       string `json:"value"`
	Expected    string `json:"expected,omitempty"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

// StockItem is one per-symbol view extracted from a video. Missing support
// or resistance levels are kept as empty slices, never cause the item to be
// dropped.
type StockItem struct {
	Symbol           string    `json:"symbol"`
	CompanyName      string    `json:"company_name,omitempty"`
	CurrentPrice     string    `json:"current_price,omitempty"`
	Action           Action    `json:"action"`
	SupportLevels    []float64 `json:"support_levels"`
	ResistanceLevels []float64 `json:"resistance_levels"`
	Outlook          string    `json:"outlook,omitempty"`
	AsOfDate         string    `json:"as_of_date"`
}

// AnalysisRecord is the structured financial extraction for one video.
// Persisted once by the pipeline orchestrator, immutable, read many times by
// the aggregation engine.
type AnalysisRecord struct {
	VideoID    string      `json:"video_id"`
	Title      string      `json:"title,omitempty"`
	Date       string      `json:"date"`
	Summary    string      `json:"summary,omitempty"`
	MacroItems []MacroItem `json:"macro_items"`
	StockItems []StockItem `json:"stock_items"`
	RawTextRef string      `json:"raw_text_ref,omitempty"`
}

// Normalize fills derived fields so downstream merge logic never sees nil
// collections or zero dates.
func (r *AnalysisRecord) Normalize() {
	if r.MacroItems == nil {
		r.MacroItems = []MacroItem{}
	}
	if r.StockItems == nil {
		r.StockItems = []StockItem{}
	}
	for i := range r.MacroItems {
		if r.MacroItems[i].Date == "" {
			r.MacroItems[i].Date = r.Date
		}
	}
	for i := range r.StockItems {
		s := &r.StockItems[i]
		if s.AsOfDate == "" {
			s.AsOfDate = r.Date
		}
		if s.SupportLevels == nil {
			s.SupportLevels = []float64{}
		}
		if s.ResistanceLevels == nil {
			s.ResistanceLevels = []float64{}
		}
		if s.Action == "" {
			s.Action = InferAction(s.Outlook, "")
		}
	}
}

// SummaryCounts holds the headline numbers of a summary report.
type SummaryCounts struct {
	MacroCount     int `json:"macro_count"`
	StockCount     int `json:"stock_count"`
	BuyCount       int `json:"buy_count"`
	SellCount      int `json:"sell_count"`
	SkippedRecords int `json:"skipped_records"`
}

// SymbolMention counts how often one symbol appeared inside the window.
type SymbolMention struct {
	Symbol   string `json:"symbol"`
	Mentions int    `json:"mentions"`
}

// SummaryReport is the merged, deduplicated view across a date window.
// Recomputed from scratch on every aggregation run; a report is a pure
// function of the artifact set in its window plus the generation timestamp.
type SummaryReport struct {
	ReportID        string               `json:"report_id"`
	GeneratedAt     time.Time            `json:"generated_at"`
	AsOf            string               `json:"as_of"`
	MacroWindowDays int                  `json:"macro_window_days"`
	StockWindowDays int                  `json:"stock_window_days"`
	MacroWindow     []MacroItem          `json:"macro_window"`
	StockWindow     map[string]StockItem `json:"stock_window"`
	MostMentioned   []SymbolMention      `json:"most_mentioned,omitempty"`
	Counts          SummaryCounts        `json:"counts"`
}

var (
	buyKeywords   = []string{"buy", "accumulate", "add on dips", "long", "bullish", "overweight", "upside", "strong momentum"}
	sellKeywords  = []string{"sell", "trim", "reduce", "short", "bearish", "take profit", "overbought", "underweight", "avoid chasing"}
	holdKeywords  = []string{"hold", "maintain", "keep position", "stay the course", "unchanged"}
	watchKeywords = []string{"watch", "wait", "sidelines", "monitor", "neutral", "track"}
)

// InferAction derives a trading stance from free-text outlook and
// recommendation fields when the extractor did not return an explicit action.
// Buy signals take precedence over sell, then hold, then watch; an
// unclassifiable text defaults to watch.
func InferAction(outlook, recommendation string) Action {
	text := strings.ToLower(outlook + " " + recommendation)

	for _, kw := range buyKeywords {
		if strings.Contains(text, kw) {
			return ActionBuy
		}
	}
	for _, kw := range sellKeywords {
		if strings.Contains(text, kw) {
			return ActionSell
		}
	}
	for _, kw := range holdKeywords {
		if strings.Contains(text, kw) {
			return ActionHold
		}
	}
	for _, kw := range watchKeywords {
		if strings.Contains(text, kw) {
			return ActionWatch
		}
	}

	return ActionWatch
}
