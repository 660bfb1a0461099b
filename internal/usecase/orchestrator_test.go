package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"FinBrief/internal/domain/models"
)

type harness struct {
	stt     *fakeTranscriber
	intent  *fakeIntent
	market  *fakeMarket
	brief   *fakeBrief
	synth   *fakeSynth
	corpus  *fakeCorpus
	metrics *countingMetrics
	cfg     PipelineConfig
}

func newHarness() *harness {
	return &harness{
		stt:     &fakeTranscriber{text: "how is tesla doing"},
		intent:  &fakeIntent{intent: models.Intent{Companies: []string{"TSLA"}}},
		market:  &fakeMarket{},
		brief:   &fakeBrief{text: "Tesla closed higher."},
		synth:   &fakeSynth{audio: []byte("mp3")},
		corpus:  &fakeCorpus{},
		metrics: newCountingMetrics(),
		cfg: PipelineConfig{
			AudioEnabled:      true,
			TopK:              5,
			MarketConcurrency: 2,
			CorpusLimit:       10,
			Timeouts: StageTimeouts{
				Transcribe: time.Second,
				Intent:     time.Second,
				Market:     time.Second,
				Corpus:     time.Second,
				Brief:      time.Second,
				Synthesize: time.Second,
			},
			Retrieval: DefaultRetrievalConfig(),
		},
	}
}

func (h *harness) orchestrator() *Orchestrator {
	return NewOrchestrator(Collaborators{
		Transcriber: h.stt,
		Intent:      h.intent,
		Market:      h.market,
		Brief:       h.brief,
		Synthesizer: h.synth,
	}, h.cfg, WithCorpus(h.corpus), WithMetrics(h.metrics))
}

func textRequest(text string, audio bool) models.Request {
	return models.Request{ID: "req-1", Modality: models.ModalityText, Text: text, WantsAudioOutput: audio}
}

func stageStatus(resp models.Response, stage models.Stage) models.StageStatus {
	for _, s := range resp.Stages {
		if s.Stage == stage {
			return s.Status
		}
	}
	return ""
}

func TestProcessTextNeverTranscribes(t *testing.T) {
	h := newHarness()
	resp, err := h.orchestrator().Process(context.Background(), textRequest("How is Tesla doing?", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.stt.calls.Load() != 0 {
		t.Fatalf("transcriber called for text request")
	}
	if stageStatus(resp, models.StageTranscribe) != models.StatusSkipped {
		t.Fatalf("expected transcribe skipped, got %+v", resp.Stages)
	}
	if h.synth.calls.Load() != 0 || resp.HasAudio() {
		t.Fatalf("synthesizer called without audio output requested")
	}
	if resp.Brief.Text != "Tesla closed higher." || resp.RequestID != "req-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Brief.CompaniesCovered) != 1 || resp.Brief.CompaniesCovered[0] != "TSLA" {
		t.Fatalf("unexpected coverage %v", resp.Brief.CompaniesCovered)
	}
	if len(h.brief.gotChunks) != 5 {
		t.Fatalf("expected top 5 chunks passed to brief, got %d", len(h.brief.gotChunks))
	}
}

func TestProcessVoiceWithAudio(t *testing.T) {
	h := newHarness()
	req := models.Request{ID: "v", Modality: models.ModalityVoice, Audio: []byte("wav"), AudioMIME: "audio/wav", WantsAudioOutput: true}
	resp, err := h.orchestrator().Process(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.stt.calls.Load() != 1 {
		t.Fatalf("expected one transcription")
	}
	if string(resp.Audio) != "mp3" || resp.AudioMIME != AudioMIME {
		t.Fatalf("expected synthesized audio, got %q %q", resp.Audio, resp.AudioMIME)
	}
}

func TestProcessAudioDisabledNeverSynthesizes(t *testing.T) {
	h := newHarness()
	h.cfg.AudioEnabled = false
	resp, err := h.orchestrator().Process(context.Background(), textRequest("tesla", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.synth.calls.Load() != 0 || resp.HasAudio() {
		t.Fatalf("synthesizer called with audio disabled")
	}
}

func TestProcessInvalidRequests(t *testing.T) {
	cases := []struct {
		name string
		req  models.Request
	}{
		{"empty text", textRequest("   ", false)},
		{"empty audio", models.Request{Modality: models.ModalityVoice}},
		{"unknown modality", models.Request{Modality: "video", Text: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.orchestrator().Process(context.Background(), tc.req)
			var pe *PipelineError
			if !errors.As(err, &pe) || pe.Stage != models.StageReceived {
				t.Fatalf("expected received stage error, got %v", err)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if h.stt.calls.Load() != 0 || len(h.market.calls) != 0 {
				t.Fatalf("collaborators called for invalid request")
			}
		})
	}
}

func TestProcessAllMarketFailuresDegrade(t *testing.T) {
	h := newHarness()
	h.intent.intent.Companies = []string{"TSLA", "NVDA"}
	h.market.failing = map[string]bool{"TSLA": true, "NVDA": true}
	h.corpus.chunks = []models.Chunk{{ID: "c1", Text: "market text"}}

	resp, err := h.orchestrator().Process(context.Background(), textRequest("tesla and nvidia", false))
	if err != nil {
		t.Fatalf("all market failures must not be fatal: %v", err)
	}
	if !resp.Brief.Degraded || !strings.Contains(resp.Brief.Caveat, "TSLA, NVDA") {
		t.Fatalf("expected degraded brief with caveat, got %+v", resp.Brief)
	}
	if len(resp.Brief.CompaniesCovered) != 0 {
		t.Fatalf("expected no coverage, got %v", resp.Brief.CompaniesCovered)
	}
	if len(h.brief.gotChunks) != 0 {
		t.Fatalf("expected empty chunk pool, got %d chunks", len(h.brief.gotChunks))
	}
	if stageStatus(resp, models.StageMarketData) != models.StatusDegraded {
		t.Fatalf("expected degraded market stage")
	}
	if h.metrics.requests["degraded"] != 1 || h.metrics.lookups["failed"] != 2 {
		t.Fatalf("unexpected metrics %+v %+v", h.metrics.requests, h.metrics.lookups)
	}
}

func TestProcessPartialMarketFailure(t *testing.T) {
	h := newHarness()
	h.intent.intent.Companies = []string{" tsla", "NVDA", "TSLA", "aapl"}
	h.market.failing = map[string]bool{"NVDA": true}

	resp, err := h.orchestrator().Process(context.Background(), textRequest("tesla nvidia apple", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(resp.Brief.CompaniesCovered, ","); got != "TSLA,AAPL" {
		t.Fatalf("unexpected coverage %q", got)
	}
	if len(h.market.calls) != 3 {
		t.Fatalf("expected deduplicated lookups, got %v", h.market.calls)
	}
	if !resp.Brief.Degraded || !strings.Contains(resp.Brief.Caveat, "NVDA") {
		t.Fatalf("expected caveat for NVDA, got %+v", resp.Brief)
	}
}

func TestProcessNoCompaniesUsesCorpus(t *testing.T) {
	h := newHarness()
	h.intent.intent.Companies = nil
	h.corpus.chunks = []models.Chunk{{ID: "g1", Text: "rates held steady", RecencyTimestamp: t0}}

	resp, err := h.orchestrator().Process(context.Background(), textRequest("what about rates", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Brief.Degraded {
		t.Fatalf("empty companies must not degrade the brief")
	}
	if len(h.brief.gotChunks) != 1 || h.brief.gotChunks[0].ID != "g1" {
		t.Fatalf("expected corpus chunk, got %+v", h.brief.gotChunks)
	}
	if stageStatus(resp, models.StageMarketData) != models.StatusSkipped {
		t.Fatalf("expected market stage skipped")
	}
}

func TestProcessCorpusFailureIgnored(t *testing.T) {
	h := newHarness()
	h.corpus.err = errBoom
	if _, err := h.orchestrator().Process(context.Background(), textRequest("tesla", false)); err != nil {
		t.Fatalf("corpus failure must be ignored: %v", err)
	}
	if len(h.brief.gotChunks) == 0 {
		t.Fatalf("expected market chunks despite corpus failure")
	}
}

func TestProcessIntentFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.intent.err = errors.New("no structured output")
	resp, err := h.orchestrator().Process(context.Background(), textRequest("???", true))

	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != models.StageIntentExtraction {
		t.Fatalf("expected intent stage error, got %v", err)
	}
	if resp.RequestID != "" || len(h.market.calls) != 0 || h.synth.calls.Load() != 0 {
		t.Fatalf("no later stage may run after a fatal intent failure")
	}
}

func TestProcessTranscriptionFailures(t *testing.T) {
	for name, stt := range map[string]*fakeTranscriber{
		"error": {err: errBoom},
		"empty": {text: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.stt = stt
			_, err := h.orchestrator().Process(context.Background(), models.Request{Modality: models.ModalityVoice, Audio: []byte{1}})
			if s, ok := StageOf(err); !ok || s != models.StageTranscribe {
				t.Fatalf("expected transcribe stage error, got %v", err)
			}
		})
	}
}

func TestProcessEmptyBriefIsFatal(t *testing.T) {
	h := newHarness()
	h.brief.text = " "
	_, err := h.orchestrator().Process(context.Background(), textRequest("tesla", false))
	if !errors.Is(err, ErrEmptyBrief) {
		t.Fatalf("expected ErrEmptyBrief, got %v", err)
	}
	if s, _ := StageOf(err); s != models.StageBriefGeneration {
		t.Fatalf("expected brief stage, got %q", s)
	}
}

func TestProcessSynthesisTimeoutKeepsBrief(t *testing.T) {
	h := newHarness()
	h.cfg.Timeouts.Synthesize = 20 * time.Millisecond
	h.synth.release = make(chan struct{})
	t.Cleanup(func() { close(h.synth.release) })

	start := time.Now()
	resp, err := h.orchestrator().Process(context.Background(), textRequest("tesla", true))
	if err != nil {
		t.Fatalf("synthesis timeout must not be fatal: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("synthesis bound not enforced, took %v", elapsed)
	}
	if resp.HasAudio() || resp.AudioMIME != "" {
		t.Fatalf("expected no audio after timeout")
	}
	if resp.Brief.Text == "" {
		t.Fatalf("expected brief to be kept")
	}
	if stageStatus(resp, models.StageSynthesis) != models.StatusFailed {
		t.Fatalf("expected failed synthesis stage, got %+v", resp.Stages)
	}
}

func TestProcessSynthesisErrorKeepsBrief(t *testing.T) {
	h := newHarness()
	h.synth.err = errBoom
	resp, err := h.orchestrator().Process(context.Background(), textRequest("tesla", true))
	if err != nil || resp.HasAudio() {
		t.Fatalf("expected brief without audio, got %v %v", err, resp.HasAudio())
	}
}

func TestProcessCanceledStopsBeforeNextStage(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.orchestrator().Process(ctx, textRequest("tesla", false))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s, _ := StageOf(err); s != models.StageIntentExtraction {
		t.Fatalf("expected intent stage, got %q", s)
	}
	if len(h.market.calls) != 0 {
		t.Fatalf("no collaborator may be called after cancellation")
	}
}

func TestCallWithTimeoutIgnoringContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	_, err := callWithTimeout(context.Background(), 10*time.Millisecond, func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrStageTimeout) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNormalizeCompanies(t *testing.T) {
	got := NormalizeCompanies([]string{" nvda", "", "TSLA", "Nvda", "aapl "})
	if strings.Join(got, ",") != "NVDA,TSLA,AAPL" {
		t.Fatalf("unexpected normalization %v", got)
	}
}

func TestProcessThreeCompaniesFiftyChunkPool(t *testing.T) {
	h := newHarness()
	h.intent.intent = models.Intent{Companies: []string{"TSLA", "NVDA", "AAPL"}}
	// 3 companies x (profile + 5 bars) = 18 market chunks; the corpus adds 32.
	for i := 0; i < 32; i++ {
		company := []string{"TSLA", "NVDA", "AAPL", ""}[i%4]
		h.corpus.chunks = append(h.corpus.chunks, models.Chunk{
			ID:               fmt.Sprintf("corpus-%02d", i),
			CompanyID:        company,
			Text:             fmt.Sprintf("Analyst note %d on chip and auto demand", i),
			RecencyTimestamp: t0.Add(-time.Duration(i) * time.Hour),
			SourceWeight:     1,
		})
	}

	resp, err := h.orchestrator().Process(context.Background(), textRequest("Compare Tesla, Nvidia and Apple", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"TSLA", "NVDA", "AAPL"}
	if !reflect.DeepEqual(resp.Brief.CompaniesCovered, want) {
		t.Fatalf("expected companies covered %v, got %v", want, resp.Brief.CompaniesCovered)
	}
	if !reflect.DeepEqual(h.brief.gotCos, want) {
		t.Fatalf("brief generator got companies %v", h.brief.gotCos)
	}
	if len(h.brief.gotChunks) != 5 {
		t.Fatalf("expected 5 ranked chunks, got %d", len(h.brief.gotChunks))
	}
	for i := 1; i < len(h.brief.gotChunks); i++ {
		if h.brief.gotChunks[i].Score > h.brief.gotChunks[i-1].Score {
			t.Fatalf("ranked chunks not sorted at %d", i)
		}
	}
	for _, s := range resp.Stages {
		if s.Stage == models.StageRetrieval && s.Detail != "5 of 50 chunks" {
			t.Fatalf("expected 5 of 50 chunks, got %q", s.Detail)
		}
	}
	if resp.HasAudio() || h.synth.calls.Load() != 0 {
		t.Fatalf("expected no audio for a text-only response")
	}
	if resp.Brief.Degraded {
		t.Fatalf("expected a complete brief")
	}
}
