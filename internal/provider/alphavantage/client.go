package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpclient "stockgenie/internal/platform/http"
	"stockgenie/models"
)

// ErrProviderError marks a syntactically valid payload that reports a
// provider-side error condition (explicit error text or advisory note).
var ErrProviderError = errors.New("provider reported an error payload")

// Client is the Alpha Vantage API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpclient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Alpha Vantage client
type ClientOptions struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// NewClient creates a new Alpha Vantage API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpclient.ClientOptions{
		Timeout:        options.RequestTimeout,
		RequestsPerSec: options.RequestsPerSec,
	}
	if options.BaseURL == "" {
		options.BaseURL = "https://www.alphavantage.co"
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    options.BaseURL,
		httpClient: httpclient.NewClient(httpOpts),
		logger:     log.With().Str("component", "alphavantage_client").Logger(),
	}
}

// Name returns the provider tag recorded on fetched bars.
func (c *Client) Name() string { return models.SourceAlphaVantage }

// RawFetch performs one daily-series request and returns the raw JSON
// payload. It does not retry; retries belong to the fetcher.
func (c *Client) RawFetch(ctx context.Context, symbol string, query models.Query) ([]byte, error) {
	endpoint := fmt.Sprintf(
		"%s/query?function=%s&symbol=%s&outputsize=%s&apikey=%s",
		c.baseURL,
		query.Function,
		url.QueryEscape(symbol),
		query.OutputSize,
		c.apiKey,
	)

	c.logger.Debug().Str("symbol", symbol).Str("function", query.Function).Msg("Fetching daily bars")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

// response mirrors the Alpha Vantage TIME_SERIES_DAILY wire format.
type response struct {
	MetaData     metaData       `json:"Meta Data"`
	TimeSeries   map[string]day `json:"Time Series (Daily)"`
	ErrorMessage string         `json:"Error Message"`
	Note         string         `json:"Note"`
	Information  string         `json:"Information"`
}

type metaData struct {
	Information   string `json:"1. Information"`
	Symbol        string `json:"2. Symbol"`
	LastRefreshed string `json:"3. Last Refreshed"`
	OutputSize    string `json:"4. Output Size"`
	TimeZone      string `json:"5. Time Zone"`
}

type day struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// ParseBars converts a raw payload into bars sorted ascending by date.
// Error payloads (explicit error text or an advisory note, which Alpha
// Vantage sends instead of data when throttling) are rejected.
func (c *Client) ParseBars(payload []byte) ([]models.Bar, error) {
	var data response
	if err := json.Unmarshal(payload, &data); err != nil {
		c.logger.Error().Err(err).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if data.ErrorMessage != "" || data.Note != "" || data.Information != "" {
		c.logger.Error().
			Str("error", data.ErrorMessage).
			Str("note", data.Note).
			Str("information", data.Information).
			Msg("Alpha Vantage error payload")
		return nil, ErrProviderError
	}

	if len(data.TimeSeries) == 0 {
		c.logger.Warn().Msg("No daily series in response")
		return nil, fmt.Errorf("empty data returned")
	}

	symbol := data.MetaData.Symbol
	bars := make([]models.Bar, 0, len(data.TimeSeries))
	for date, d := range data.TimeSeries {
		bar, err := parseDay(symbol, date, d)
		if err != nil {
			c.logger.Warn().Err(err).Str("date", date).Msg("Skipping malformed day entry")
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no parseable bars in payload")
	}

	// Sort bars by date (oldest first for proper calculations)
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	c.logger.Debug().Int("count", len(bars)).Str("symbol", symbol).Msg("Parsed daily bars")
	return bars, nil
}

func parseDay(symbol, date string, d day) (models.Bar, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing date: %w", err)
	}
	open, err := decimal.NewFromString(d.Open)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing open: %w", err)
	}
	high, err := decimal.NewFromString(d.High)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing high: %w", err)
	}
	low, err := decimal.NewFromString(d.Low)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing low: %w", err)
	}
	closePrice, err := decimal.NewFromString(d.Close)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing close: %w", err)
	}
	volume, err := strconv.ParseInt(d.Volume, 10, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parsing volume: %w", err)
	}
	if volume < 0 {
		return models.Bar{}, fmt.Errorf("negative volume %d", volume)
	}

	return models.Bar{
		Symbol:        symbol,
		Date:          day.UTC(),
		Open:          open,
		High:          high,
		Low:           low,
		Close:         closePrice,
		Volume:        volume,
		AdjustedClose: closePrice,
		Source:        models.SourceAlphaVantage,
	}, nil
}
