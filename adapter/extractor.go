// ABOUTME: This file implements the LLM extractor client for financial signal extraction
// ABOUTME: Maps HTTP 429 to domain.ErrRateLimited so the batch controller can back off
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"finance-insight/config"
	"finance-insight/domain"
)

const (
	// Prompt tuned for instruction-following models serving /api/generate.
	extractionPromptTemplate = `You are a financial analyst. The text below is the transcript of a finance
YouTube video titled "%s". Extract the investment signals it contains and
answer with a single JSON object, no markdown, matching this shape:

{
  "summary": "one-paragraph recap",
  "macroeconomic_data": [
    {"indicator": "CPI", "value": "2.1%%", "expected": "2.3%%", "date": "YYYY-MM-DD", "description": "..."}
  ],
  "stock_analysis": [
    {"symbol": "NVDA", "company_name": "NVIDIA", "current_price": "131.20",
     "action": "buy|sell|hold|watch", "support_levels": [120.0], "resistance_levels": [140.0],
     "outlook": "...", "recommendation": "..."}
  ]
}

Use numbers for price levels. Leave arrays empty when the video mentions
nothing of that kind. Do not invent data that is not in the transcript.

TRANSCRIPT:
---
%s
---`
)

// LLMExtractor calls an LLM generation endpoint and parses the structured
// extraction out of its response.
type LLMExtractor struct {
	cfg    config.ExtractorConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMExtractor creates an extractor backed by an HTTP generation API.
func NewLLMExtractor(cfg config.ExtractorConfig, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type generatePayload struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
	NumCtx      int     `json:"num_ctx"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// extractionWire is the JSON contract the prompt asks the model for.
type extractionWire struct {
	Summary   string `json:"summary"`
	MacroData []struct {
		Indicator   string `json:"indicator"`
		Value       string `json:"value"`
		Expected    string `json:"expected"`
		Date        string `json:"date"`
		Description string `json:"description"`
	} `json:"macroeconomic_data"`
	StockAnalysis []struct {
		Symbol           string `json:"symbol"`
		CompanyName      string `json:"company_name"`
		CurrentPrice     string `json:"current_price"`
		Action           string `json:"action"`
		SupportLevels    []any  `json:"support_levels"`
		ResistanceLevels []any  `json:"resistance_levels"`
		Outlook          string `json:"outlook"`
		Recommendation   string `json:"recommendation"`
	} `json:"stock_analysis"`
}

// Extract sends the transcript to the model and parses the structured
// response into an analysis record. The record's VideoID and Date are left
// for the caller to fill from the task context.
func (e *LLMExtractor) Extract(ctx context.Context, transcript, videoTitle string) (*domain.AnalysisRecord, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate, videoTitle, transcript)

	payload := generatePayload{
		Model:  e.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: 0.1,
			TopP:        0.9,
			NumPredict:  4000,
			NumCtx:      16384,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction payload: %w", err)
	}

	apiURL := e.cfg.Host + e.cfg.APIPath

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodPost, apiURL, strings.NewReader(string(jsonData)))
	if err != nil {
		return nil, fmt.Errorf("create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	e.logger.DebugContext(ctx, "sending extraction request",
		"api_url", apiURL,
		"model", e.cfg.Model,
		"transcript_length", len(transcript))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.logger.Error("failed to close response body", "error", err)
		}
	}()

	if err := classifyStatus(resp.StatusCode, resp.Status); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}

	var apiResponse generateResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("parse extraction response envelope: %w", err)
	}

	if !apiResponse.Done {
		e.logger.Warn("received incomplete response from extractor")
	}

	record, err := parseExtraction(apiResponse.Response)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "extraction completed",
		"macro_items", len(record.MacroItems),
		"stock_items", len(record.StockItems))

	return record, nil
}

func classifyStatus(code int, status string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("extractor returned %s: %w", status, domain.ErrRateLimited)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("extractor returned %s: %w", status, domain.ErrAuthFailed)
	default:
		return fmt.Errorf("extractor request failed with status: %s", status)
	}
}

// parseExtraction pulls the JSON object out of the model response and maps
// it onto the domain record. Models occasionally wrap output in code fences
// or prose; the cleanup mirrors what those responses look like in practice.
func parseExtraction(response string) (*domain.AnalysisRecord, error) {
	jsonText := extractJSONObject(response)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in model response: %w", domain.ErrInvalidExtraction)
	}

	var wire extractionWire
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal model response: %v: %w", err, domain.ErrInvalidExtraction)
	}

	record := &domain.AnalysisRecord{
		Summary:    wire.Summary,
		MacroItems: make([]domain.MacroItem, 0, len(wire.MacroData)),
		StockItems: make([]domain.StockItem, 0, len(wire.StockAnalysis)),
	}

	for _, m := range wire.MacroData {
		if m.Indicator == "" {
			continue
		}
		record.MacroItems = append(record.MacroItems, domain.MacroItem{
			Indicator:   m.Indicator,
			Value:       m.Value,
			Expected:    m.Expected,
			Date:        m.Date,
			Description: m.Description,
		})
	}

	for _, s := range wire.StockAnalysis {
		if s.Symbol == "" {
			continue
		}
		action := domain.Action(strings.ToLower(s.Action))
		switch action {
		case domain.ActionBuy, domain.ActionSell, domain.ActionHold, domain.ActionWatch:
		default:
			action = domain.InferAction(s.Outlook, s.Recommendation)
		}
		record.StockItems = append(record.StockItems, domain.StockItem{
			Symbol:           strings.ToUpper(s.Symbol),
			CompanyName:      s.CompanyName,
			CurrentPrice:     s.CurrentPrice,
			Action:           action,
			SupportLevels:    toPriceLevels(s.SupportLevels),
			ResistanceLevels: toPriceLevels(s.ResistanceLevels),
			Outlook:          s.Outlook,
		})
	}

	return record, nil
}

// extractJSONObject strips code fences and surrounding prose, returning the
// outermost {...} span of the response.
func extractJSONObject(response string) string {
	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// toPriceLevels coerces the model's price arrays, which arrive as numbers or
// numeric strings, into floats. Unparseable entries are dropped.
func toPriceLevels(raw []any) []float64 {
	levels := make([]float64, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			levels = append(levels, n)
		case string:
			cleaned := strings.TrimSpace(strings.Trim(n, "$"))
			if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
				levels = append(levels, parsed)
			}
		}
	}
	return levels
}
