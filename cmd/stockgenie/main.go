package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockgenie/internal/config"
	"stockgenie/internal/fetch"
	"stockgenie/internal/indicator"
	"stockgenie/internal/llm"
	"stockgenie/internal/pipeline"
	"stockgenie/internal/provider/alphavantage"
	"stockgenie/internal/ratelimit"
	"stockgenie/internal/signal"
	"stockgenie/internal/storage"
	"stockgenie/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	lvl, err := zerolog.ParseLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	cfg, err := config.Load(envOrDefault("CONFIG_PATH", "providers.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	symbols := strings.Split(envOrDefault("SYMBOLS", "AAPL"), ",")
	for i := range symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(symbols[i]))
	}

	ctx := context.Background()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening bar store")
	}
	defer closeStore()

	p, limiter := buildPipeline(cfg, store)

	gen := signal.New(signal.Config{
		MinBars:          cfg.Analysis.MinBars,
		SMAFastPeriod:    cfg.Analysis.SMAFast,
		SMASlowPeriod:    cfg.Analysis.SMASlow,
		RSIPeriod:        cfg.Analysis.RSIPeriod,
		MACDFastPeriod:   cfg.Analysis.MACDFast,
		MACDSlowPeriod:   cfg.Analysis.MACDSlow,
		MACDSignalPeriod: cfg.Analysis.MACDSignal,
	})

	var analyzer *llm.Analyzer
	if cfg.OpenAI.APIKey != "" {
		analyzer = llm.NewAnalyzer(llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -cfg.Analysis.Days)

	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		analyzeSymbol(ctx, cfg, p, store, gen, analyzer, symbol, start, end)
	}

	if limiter != nil {
		st := limiter.Status(models.SourceAlphaVantage)
		log.Info().
			Int("minute_used", st.MinuteUsed).
			Int("minute_limit", st.MinuteLimit).
			Int("day_used", st.DayUsed).
			Int("day_limit", st.DayLimit).
			Msg("provider quota")
	}
}

func analyzeSymbol(
	ctx context.Context,
	cfg *config.Config,
	p *pipeline.Pipeline,
	store models.BarStore,
	gen *signal.Generator,
	analyzer *llm.Analyzer,
	symbol string,
	start, end time.Time,
) {
	logger := log.With().Str("symbol", symbol).Logger()

	bars, err := p.GetBars(ctx, symbol, start, end)
	if err != nil {
		logger.Error().Err(err).Msg("acquiring bars")
		return
	}
	if len(bars) == 0 {
		logger.Warn().Msg("no bars for range")
		return
	}
	logger.Info().
		Int("bars", len(bars)).
		Str("source", bars[len(bars)-1].Source).
		Msg("bars acquired")

	samples := collectSamples(cfg, bars)
	// Synthetic data stays out of the store; only real samples persist.
	if len(samples) > 0 && bars[0].Source != models.SourceMock {
		if err := store.UpsertIndicatorSamples(ctx, samples); err != nil {
			logger.Error().Err(err).Msg("persisting indicator samples")
		}
	}

	signals := gen.Signals(symbol, bars)
	if len(signals) == 0 {
		logger.Warn().Int("bars", len(bars)).Msg("not enough history for signals")
		return
	}

	fmt.Printf("\n===== %s =====\n", symbol)
	for _, family := range []string{models.FamilySMA, models.FamilyRSI, models.FamilyMACD, models.FamilyOverall} {
		if sig, ok := signals[family]; ok {
			fmt.Printf("%-8s %s\n", family, sig)
		}
	}

	if analyzer == nil {
		return
	}
	analysis, err := analyzer.AnalyzeStock(ctx, symbol, bars, signals)
	if err != nil {
		logger.Error().Err(err).Msg("narrative analysis failed")
		return
	}
	fmt.Printf("\nRecommendation: %s (confidence %d%%)\n", analysis.Recommendation, analysis.Confidence)
	fmt.Println(analysis.Narrative)
}

func collectSamples(cfg *config.Config, bars []models.Bar) []models.IndicatorSample {
	var samples []models.IndicatorSample
	samples = append(samples, indicator.SMA(bars, cfg.Analysis.SMAFast)...)
	samples = append(samples, indicator.SMA(bars, cfg.Analysis.SMASlow)...)
	samples = append(samples, indicator.EMA(bars, cfg.Analysis.SMAFast)...)
	samples = append(samples, indicator.RSI(bars, cfg.Analysis.RSIPeriod)...)
	samples = append(samples, indicator.MACD(bars, cfg.Analysis.MACDFast, cfg.Analysis.MACDSlow, cfg.Analysis.MACDSignal)...)
	samples = append(samples, indicator.OBV(bars)...)
	return samples
}

func buildPipeline(cfg *config.Config, store models.BarStore) (*pipeline.Pipeline, *ratelimit.Limiter) {
	opts := pipeline.Options{
		Store:                store,
		MaxConcurrentFetches: cfg.Fetch.MaxConcurrentFetches,
	}

	av := cfg.Providers[models.SourceAlphaVantage]
	if !av.Enabled() {
		log.Warn().Msg("no usable provider credential, synthetic data only")
		return pipeline.New(opts), nil
	}

	limiter := ratelimit.New(map[string]ratelimit.Limits{
		models.SourceAlphaVantage: {
			PerMinute: av.CallsPerMinute,
			PerDay:    av.CallsPerDay,
		},
	})
	provider := alphavantage.NewClient(alphavantage.ClientOptions{
		APIKey:         av.APIKey,
		BaseURL:        av.BaseURL,
		RequestTimeout: cfg.Fetch.RequestTimeout,
		RequestsPerSec: int(av.RequestsPerSec),
	})
	opts.Provider = provider
	opts.Fetcher = fetch.New(provider, limiter, fetch.Options{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BaseDelay:   cfg.Fetch.RetryBaseDelay,
	})
	return pipeline.New(opts), limiter
}

func openStore(cfg *config.Config) (models.BarStore, func(), error) {
	if !cfg.DatabaseConfigured() {
		log.Info().Msg("no database configured, using in-memory store")
		return storage.NewMemory(), func() {}, nil
	}
	db, err := storage.New(storage.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
