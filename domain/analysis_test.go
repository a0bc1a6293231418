package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferAction(t *testing.T) {
	tests := []struct {
		name           string
		outlook        string
		recommendation string
		want           Action
	}{
		{
			name:    "should detect buy from bullish outlook",
			outlook: "Bullish setup, expecting a breakout above resistance",
			want:    ActionBuy,
		},
		{
			name:           "should detect buy from recommendation field",
			recommendation: "Good entry, add on dips near support",
			want:           ActionBuy,
		},
		{
			name:    "should detect sell from bearish language",
			outlook: "Bearish divergence forming, take profit here",
			want:    ActionSell,
		},
		{
			name:    "should detect hold",
			outlook: "Maintain current position through earnings",
			want:    ActionHold,
		},
		{
			name:    "should detect watch",
			outlook: "Stay on the sidelines until CPI print",
			want:    ActionWatch,
		},
		{
			name:    "should prefer buy over sell when both appear",
			outlook: "Was bearish last week but now a clear buy signal",
			want:    ActionBuy,
		},
		{
			name:    "should default to watch for unclassifiable text",
			outlook: "The market did things today",
			want:    ActionWatch,
		},
		{
			name: "should default to watch for empty input",
			want: ActionWatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferAction(tt.outlook, tt.recommendation))
		})
	}
}

func TestAnalysisRecordNormalize(t *testing.T) {
	t.Run("should replace nil collections with empty slices", func(t *testing.T) {
		rec := AnalysisRecord{VideoID: "abc123", Date: "2025-01-15"}
		rec.Normalize()

		assert.NotNil(t, rec.MacroItems)
		assert.NotNil(t, rec.StockItems)
		assert.Empty(t, rec.MacroItems)
	})

	t.Run("should backfill item dates from record date", func(t *testing.T) {
		rec := AnalysisRecord{
			VideoID:    "abc123",
			Date:       "2025-01-15",
			MacroItems: []MacroItem{{Indicator: "CPI", Value: "2.1%"}},
			StockItems: []StockItem{{Symbol: "NVDA", Action: ActionBuy}},
		}
		rec.Normalize()

		assert.Equal(t, "2025-01-15", rec.MacroItems[0].Date)
		assert.Equal(t, "2025-01-15", rec.StockItems[0].AsOfDate)
	})

	t.Run("should keep stock items with missing levels as empty lists", func(t *testing.T) {
		rec := AnalysisRecord{
			VideoID:    "abc123",
			Date:       "2025-01-15",
			StockItems: []StockItem{{Symbol: "TSLA", Action: ActionHold}},
		}
		rec.Normalize()

		assert.NotNil(t, rec.StockItems[0].SupportLevels)
		assert.NotNil(t, rec.StockItems[0].ResistanceLevels)
		assert.Empty(t, rec.StockItems[0].SupportLevels)
	})

	t.Run("should infer action from outlook when action is missing", func(t *testing.T) {
		rec := AnalysisRecord{
			VideoID:    "abc123",
			Date:       "2025-01-15",
			StockItems: []StockItem{{Symbol: "AAPL", Outlook: "bullish into earnings"}},
		}
		rec.Normalize()

		assert.Equal(t, ActionBuy, rec.StockItems[0].Action)
	})
}
