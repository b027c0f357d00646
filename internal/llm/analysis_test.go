package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockgenie/models"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func TestExtractRecommendation(t *testing.T) {
	tests := []struct {
		narrative string
		want      models.Signal
	}{
		{"Recommendation: BUY with strong momentum", models.SignalBuy},
		{"I would sell this position", models.SignalSell},
		{"Best to buy; do not sell yet", models.SignalBuy},
		{"The outlook is unclear", models.SignalHold},
		{"", models.SignalHold},
	}
	for _, tt := range tests {
		if got := ExtractRecommendation(tt.narrative); got != tt.want {
			t.Errorf("ExtractRecommendation(%q) = %s, want %s", tt.narrative, got, tt.want)
		}
	}
}

func TestExtractConfidence(t *testing.T) {
	tests := []struct {
		narrative string
		want      int
	}{
		{"BUY with 80% confidence", 80},
		{"I have high confidence in this call", 85},
		{"A moderate signal at best", 65},
		{"The picture is uncertain", 35},
		{"No hints at all", 50},
	}
	for _, tt := range tests {
		if got := ExtractConfidence(tt.narrative); got != tt.want {
			t.Errorf("ExtractConfidence(%q) = %d, want %d", tt.narrative, got, tt.want)
		}
	}
}

func TestBuildPromptIncludesRecentBarsAndSignals(t *testing.T) {
	bars := make([]models.Bar, 15)
	for i := range bars {
		bars[i] = models.Bar{
			Symbol: "AAPL",
			Date:   time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Open:   decimal.NewFromInt(100),
			High:   decimal.NewFromInt(101),
			Low:    decimal.NewFromInt(99),
			Close:  decimal.NewFromInt(100),
			Volume: 1000,
		}
	}
	signals := map[string]models.Signal{
		models.FamilySMA:     models.SignalBuy,
		models.FamilyOverall: models.SignalBuy,
	}

	prompt := BuildPrompt("AAPL", bars, signals)

	if !strings.Contains(prompt, "last 10 days") {
		t.Error("prompt does not limit to the trailing window")
	}
	if strings.Contains(prompt, "2024-03-05") {
		t.Error("prompt includes bars outside the trailing window")
	}
	if !strings.Contains(prompt, "2024-03-15") {
		t.Error("prompt missing the most recent bar")
	}
	if !strings.Contains(prompt, "OVERALL: BUY") {
		t.Error("prompt missing the overall signal")
	}
}

func TestAnalyzeStock(t *testing.T) {
	completer := &stubCompleter{reply: "Trend is up. Recommendation: BUY with 75% confidence."}
	a := NewAnalyzer(completer)

	analysis, err := a.AnalyzeStock(context.Background(), "AAPL", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.Recommendation != models.SignalBuy {
		t.Errorf("recommendation = %s, want BUY", analysis.Recommendation)
	}
	if analysis.Confidence != 75 {
		t.Errorf("confidence = %d, want 75", analysis.Confidence)
	}
	if analysis.Narrative != completer.reply {
		t.Error("narrative not preserved verbatim")
	}
}

func TestAnalyzeStockPropagatesErrors(t *testing.T) {
	completer := &stubCompleter{err: errors.New("model offline")}
	a := NewAnalyzer(completer)

	if _, err := a.AnalyzeStock(context.Background(), "AAPL", nil, nil); err == nil {
		t.Fatal("expected error from failing completer")
	}
}
