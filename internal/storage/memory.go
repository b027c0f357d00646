package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockgenie/models"
)

type sampleKey struct {
	date      time.Time
	indicator models.IndicatorType
	period    int
}

// Memory is an in-memory bar store with the same upsert semantics as
// the PostgreSQL store. Used by tests and for credential-less runs.
type Memory struct {
	mu      sync.RWMutex
	bars    map[string]map[time.Time]models.Bar
	samples map[string]map[sampleKey]models.IndicatorSample
}

func NewMemory() *Memory {
	return &Memory{
		bars:    make(map[string]map[time.Time]models.Bar),
		samples: make(map[string]map[sampleKey]models.IndicatorSample),
	}
}

func (m *Memory) HasRange(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for date := range m.bars[symbol] {
		if !date.Before(start) && !date.After(end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) GetRange(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bars []models.Bar
	for date, bar := range m.bars[symbol] {
		if !date.Before(start) && !date.After(end) {
			bars = append(bars, bar)
		}
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, nil
}

func (m *Memory) UpsertBars(ctx context.Context, bars []models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range bars {
		bySymbol, ok := m.bars[b.Symbol]
		if !ok {
			bySymbol = make(map[time.Time]models.Bar)
			m.bars[b.Symbol] = bySymbol
		}
		bySymbol[b.Date] = b
	}
	return nil
}

func (m *Memory) UpsertIndicatorSamples(ctx context.Context, samples []models.IndicatorSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range samples {
		bySymbol, ok := m.samples[s.Symbol]
		if !ok {
			bySymbol = make(map[sampleKey]models.IndicatorSample)
			m.samples[s.Symbol] = bySymbol
		}
		bySymbol[sampleKey{s.Date, s.Indicator, s.Period}] = s
	}
	return nil
}

func (m *Memory) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest time.Time
	var found bool
	for date := range m.bars[symbol] {
		if !found || date.After(latest) {
			latest = date
			found = true
		}
	}
	return latest, found, nil
}

func (m *Memory) EarliestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var earliest time.Time
	var found bool
	for date := range m.bars[symbol] {
		if !found || date.Before(earliest) {
			earliest = date
			found = true
		}
	}
	return earliest, found, nil
}

// SampleCount reports how many indicator samples are stored for a
// symbol, for test assertions.
func (m *Memory) SampleCount(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples[symbol])
}
