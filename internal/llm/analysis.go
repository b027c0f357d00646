package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockgenie/models"
)

// promptWindow is how many trailing bars are shown to the model.
const promptWindow = 10

// Analysis is the model's view of a symbol, with the recommendation
// and confidence pulled out of the free-form narrative.
type Analysis struct {
	Symbol         string
	Narrative      string
	Recommendation models.Signal
	Confidence     int
}

// Analyzer turns bars and rule signals into a narrative analysis.
type Analyzer struct {
	completer models.Completer
	logger    zerolog.Logger
}

func NewAnalyzer(completer models.Completer) *Analyzer {
	return &Analyzer{
		completer: completer,
		logger:    log.With().Str("component", "llm_analyzer").Logger(),
	}
}

// AnalyzeStock prompts the model with recent bars and the computed
// signals, then extracts a structured recommendation from the reply.
func (a *Analyzer) AnalyzeStock(ctx context.Context, symbol string, bars []models.Bar, signals map[string]models.Signal) (*Analysis, error) {
	prompt := BuildPrompt(symbol, bars, signals)

	narrative, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", symbol, err)
	}

	analysis := &Analysis{
		Symbol:         symbol,
		Narrative:      narrative,
		Recommendation: ExtractRecommendation(narrative),
		Confidence:     ExtractConfidence(narrative),
	}
	a.logger.Info().
		Str("symbol", symbol).
		Str("recommendation", string(analysis.Recommendation)).
		Int("confidence", analysis.Confidence).
		Msg("analysis complete")
	return analysis, nil
}

// BuildPrompt formats the trailing bars and rule signals into an
// analyst prompt.
func BuildPrompt(symbol string, bars []models.Bar, signals map[string]models.Signal) string {
	var sb strings.Builder
	sb.WriteString("You are a financial analyst. Analyze the following stock data for " + symbol + ":\n\n")

	start := len(bars) - promptWindow
	if start < 0 {
		start = 0
	}
	recent := bars[start:]

	sb.WriteString(fmt.Sprintf("Stock Data (last %d days):\n", len(recent)))
	for _, b := range recent {
		sb.WriteString(fmt.Sprintf("Date: %s, Open: $%s, High: $%s, Low: $%s, Close: $%s, Volume: %d\n",
			b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume))
	}

	if len(signals) > 0 {
		sb.WriteString("\nRule-based signals:\n")
		for _, family := range []string{models.FamilySMA, models.FamilyRSI, models.FamilyMACD, models.FamilyOverall} {
			if sig, ok := signals[family]; ok {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", family, sig))
			}
		}
	}

	sb.WriteString("\nPlease provide:\n")
	sb.WriteString("1. Brief trend analysis\n")
	sb.WriteString("2. Key price movements\n")
	sb.WriteString("3. Volume analysis\n")
	sb.WriteString("4. Recommendation: BUY, SELL, or HOLD with confidence percentage (1-100)\n")
	sb.WriteString("5. Brief reasoning for your recommendation\n\n")
	sb.WriteString("Keep your analysis concise and professional.")

	return sb.String()
}

// ExtractRecommendation scans a narrative for a trade direction. BUY
// wins over SELL when both appear; anything else is HOLD.
func ExtractRecommendation(narrative string) models.Signal {
	upper := strings.ToUpper(narrative)
	switch {
	case strings.Contains(upper, "BUY"):
		return models.SignalBuy
	case strings.Contains(upper, "SELL"):
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

var percentPattern = regexp.MustCompile(`(\d+)%`)

// ExtractConfidence pulls a confidence percentage out of the
// narrative, falling back to coarse phrase matching and finally 50.
func ExtractConfidence(narrative string) int {
	if m := percentPattern.FindStringSubmatch(narrative); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}

	lower := strings.ToLower(narrative)
	switch {
	case strings.Contains(lower, "high confidence") || strings.Contains(lower, "very confident"):
		return 85
	case strings.Contains(lower, "medium confidence") || strings.Contains(lower, "moderate"):
		return 65
	case strings.Contains(lower, "low confidence") || strings.Contains(lower, "uncertain"):
		return 35
	}
	return 50
}
