package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FinBrief/internal/domain/models"
)

type fakeTranscriber struct {
	calls atomic.Int32
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeIntent struct {
	intent models.Intent
	err    error
}

func (f *fakeIntent) ExtractIntent(_ context.Context, text string) (models.Intent, error) {
	if f.err != nil {
		return models.Intent{}, f.err
	}
	in := f.intent
	in.RawQuery = text
	return in, nil
}

type fakeMarket struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (f *fakeMarket) FetchMarketData(_ context.Context, id string) (models.MarketRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.failing[id] {
		return models.MarketRecord{}, fmt.Errorf("no data for %s", id)
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]models.PricePoint, 0, 5)
	for i := 0; i < 5; i++ {
		prices = append(prices, models.PricePoint{
			Timestamp: base.AddDate(0, 0, i),
			Close:     100 + float64(i),
			Volume:    1000,
		})
	}
	return models.MarketRecord{CompanyID: id, Name: id + " Inc", Sector: "Technology", Region: "US", Prices: prices}, nil
}

type fakeBrief struct {
	text      string
	err       error
	gotChunks []models.RankedChunk
	gotCos    []string
}

func (f *fakeBrief) GenerateBrief(_ context.Context, _ string, companies []string, ranked []models.RankedChunk) (models.Brief, error) {
	f.gotChunks = ranked
	f.gotCos = companies
	if f.err != nil {
		return models.Brief{}, f.err
	}
	return models.Brief{Text: f.text}, nil
}

type fakeSynth struct {
	calls   atomic.Int32
	audio   []byte
	err     error
	release chan struct{}
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.audio, f.err
}

type fakeCorpus struct {
	chunks []models.Chunk
	err    error
	saved  []models.Chunk
}

func (f *fakeCorpus) ListChunks(_ context.Context, _ []string, _ int) ([]models.Chunk, error) {
	return f.chunks, f.err
}

func (f *fakeCorpus) SaveChunks(_ context.Context, chunks []models.Chunk) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, chunks...)
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	requests map[string]int
	lookups  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{requests: map[string]int{}, lookups: map[string]int{}}
}

func (m *countingMetrics) RecordRequest(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[result]++
}

func (m *countingMetrics) RecordStage(string, string, float64) {}

func (m *countingMetrics) RecordMarketLookup(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[result]++
}

func (m *countingMetrics) RecordRetrieved(int) {}

var errBoom = errors.New("boom")
