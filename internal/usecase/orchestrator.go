package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domrepo "FinBrief/internal/domain/repository"
	domsvc "FinBrief/internal/domain/service"
	applogger "FinBrief/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AudioMIME is the content type of synthesized speech.
const AudioMIME = "audio/mpeg"

// StageTimeouts bounds each collaborator call. Zero disables the bound.
type StageTimeouts struct {
	Transcribe time.Duration
	Intent     time.Duration
	Market     time.Duration
	Corpus     time.Duration
	Brief      time.Duration
	Synthesize time.Duration
}

// PipelineConfig is the immutable configuration of an Orchestrator.
type PipelineConfig struct {
	AudioEnabled      bool
	TopK              int
	MarketConcurrency int
	CorpusLimit       int
	Timeouts          StageTimeouts
	Retrieval         RetrievalConfig
}

// Collaborators groups the remote services driven by the pipeline.
type Collaborators struct {
	Transcriber domsvc.Transcriber
	Intent      domsvc.IntentExtractor
	Market      domsvc.MarketDataFetcher
	Brief       domsvc.BriefGenerator
	Synthesizer domsvc.Synthesizer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the pipeline logger.
func WithLogger(l *applogger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics sets the pipeline metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCorpus adds static corpus chunks to every chunk pool.
func WithCorpus(store domrepo.CorpusStore) Option {
	return func(o *Orchestrator) { o.corpus = store }
}

// Orchestrator runs one request through transcription, intent extraction,
// market data, retrieval, brief generation and synthesis. Process is safe
// for concurrent use; requests share nothing but configuration.
type Orchestrator struct {
	collab    Collaborators
	cfg       PipelineConfig
	retriever *ChunkRetriever
	corpus    domrepo.CorpusStore
	metrics   domrepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

func NewOrchestrator(collab Collaborators, cfg PipelineConfig, opts ...Option) *Orchestrator {
	if cfg.MarketConcurrency <= 0 {
		cfg.MarketConcurrency = 1
	}
	o := &Orchestrator{
		collab:    collab,
		cfg:       cfg,
		retriever: NewChunkRetriever(cfg.Retrieval),
		metrics:   nopMetrics{},
		log:       applogger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the per-request state of Process.
type run struct {
	o      *Orchestrator
	req    models.Request
	log    *applogger.Logger
	stages []models.StageReport
}

func (r *run) record(stage models.Stage, status models.StageStatus, started time.Time, detail string) {
	d := r.o.now().Sub(started)
	r.stages = append(r.stages, models.StageReport{Stage: stage, Status: status, Duration: d, Detail: detail})
	r.o.metrics.RecordStage(string(stage), string(status), d.Seconds())
	r.log.Debug("stage finished",
		applogger.String("stage", string(stage)),
		applogger.String("status", string(status)),
		applogger.Duration("duration", d),
	)
}

func (r *run) fail(stage models.Stage, started time.Time, cause error) error {
	r.record(stage, models.StatusFailed, started, cause.Error())
	r.o.metrics.RecordRequest("failed")
	r.log.Error("pipeline failed", applogger.String("stage", string(stage)), applogger.Error(cause))
	return stageError(stage, cause)
}

// Process runs the pipeline for req. It returns a *PipelineError when a
// non-recoverable stage fails or the caller cancels ctx.
func (o *Orchestrator) Process(ctx context.Context, req models.Request) (models.Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	r := &run{o: o, req: req, log: o.log.With(applogger.String("request_id", req.ID))}

	started := o.now()
	if err := validateRequest(req); err != nil {
		return models.Response{}, r.fail(models.StageReceived, started, err)
	}
	r.record(models.StageReceived, models.StatusOK, started, string(req.Modality))

	query, err := r.transcribe(ctx)
	if err != nil {
		return models.Response{}, err
	}

	intent, err := r.extractIntent(ctx, query)
	if err != nil {
		return models.Response{}, err
	}

	records, failed, err := r.fetchMarket(ctx, intent.Companies)
	if err != nil {
		return models.Response{}, err
	}
	covered := make([]string, 0, len(records))
	for _, rec := range records {
		covered = append(covered, rec.CompanyID)
	}
	allFailed := len(intent.Companies) > 0 && len(records) == 0

	if err := ctx.Err(); err != nil {
		return models.Response{}, r.fail(models.StageRetrieval, o.now(), err)
	}
	started = o.now()
	var pool []models.Chunk
	if !allFailed {
		pool = r.buildPool(ctx, records, covered)
	}
	ranked := o.retriever.Select(intent.RawQuery, covered, pool, o.cfg.TopK)
	o.metrics.RecordRetrieved(len(ranked))
	r.record(models.StageRetrieval, models.StatusOK, started, fmt.Sprintf("%d of %d chunks", len(ranked), len(pool)))

	brief, err := r.generateBrief(ctx, intent.RawQuery, covered, ranked)
	if err != nil {
		return models.Response{}, err
	}
	if len(failed) > 0 {
		brief.Degraded = true
		brief.Caveat = "Market data was unavailable for: " + strings.Join(failed, ", ") + "."
	}

	resp := models.Response{RequestID: req.ID, Brief: brief}
	audio, err := r.synthesize(ctx, brief.Text)
	if err != nil {
		return models.Response{}, err
	}
	if len(audio) > 0 {
		resp.Audio = audio
		resp.AudioMIME = AudioMIME
	}

	result := "ok"
	if brief.Degraded {
		result = "degraded"
	}
	r.record(models.StageDone, models.StatusOK, o.now(), "")
	o.metrics.RecordRequest(result)
	resp.Stages = r.stages
	r.log.Info("pipeline completed",
		applogger.Strings("companies", covered),
		applogger.Bool("degraded", brief.Degraded),
		applogger.Bool("audio", resp.HasAudio()),
	)
	return resp, nil
}

func validateRequest(req models.Request) error {
	switch req.Modality {
	case models.ModalityText:
		if strings.TrimSpace(req.Text) == "" {
			return fmt.Errorf("%w: text input is empty", ErrInvalidRequest)
		}
	case models.ModalityVoice:
		if len(req.Audio) == 0 {
			return fmt.Errorf("%w: audio input is empty", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown modality %q", ErrInvalidRequest, req.Modality)
	}
	return nil
}

func (r *run) transcribe(ctx context.Context) (string, error) {
	o := r.o
	started := o.now()
	if !NeedsTranscription(r.req.Modality) {
		r.record(models.StageTranscribe, models.StatusSkipped, started, "")
		return strings.TrimSpace(r.req.Text), nil
	}
	if err := ctx.Err(); err != nil {
		return "", r.fail(models.StageTranscribe, started, err)
	}
	text, err := callWithTimeout(ctx, o.cfg.Timeouts.Transcribe, func(ctx context.Context) (string, error) {
		return o.collab.Transcriber.Transcribe(ctx, r.req.Audio, r.req.AudioMIME)
	})
	if err != nil {
		return "", r.fail(models.StageTranscribe, started, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", r.fail(models.StageTranscribe, started, ErrEmptyTranscript)
	}
	r.record(models.StageTranscribe, models.StatusOK, started, "")
	return text, nil
}

func (r *run) extractIntent(ctx context.Context, query string) (models.Intent, error) {
	o := r.o
	started := o.now()
	if err := ctx.Err(); err != nil {
		return models.Intent{}, r.fail(models.StageIntentExtraction, started, err)
	}
	intent, err := callWithTimeout(ctx, o.cfg.Timeouts.Intent, func(ctx context.Context) (models.Intent, error) {
		return o.collab.Intent.ExtractIntent(ctx, query)
	})
	if err != nil {
		return models.Intent{}, r.fail(models.StageIntentExtraction, started, err)
	}
	intent.Companies = NormalizeCompanies(intent.Companies)
	if strings.TrimSpace(intent.RawQuery) == "" {
		intent.RawQuery = query
	}
	r.record(models.StageIntentExtraction, models.StatusOK, started, strings.Join(intent.Companies, ","))
	return intent, nil
}

// NormalizeCompanies trims and upper-cases ids, dropping blanks and
// duplicates while keeping first-occurrence order.
func NormalizeCompanies(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// fetchMarket looks up every company concurrently and waits for all of them.
// Failed lookups are dropped; records keep the order of companies.
func (r *run) fetchMarket(ctx context.Context, companies []string) ([]models.MarketRecord, []string, error) {
	o := r.o
	started := o.now()
	if len(companies) == 0 {
		r.record(models.StageMarketData, models.StatusSkipped, started, "no companies")
		return nil, nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, r.fail(models.StageMarketData, started, err)
	}

	type lookup struct {
		rec models.MarketRecord
		err error
	}
	results := make([]lookup, len(companies))

	var g errgroup.Group
	g.SetLimit(o.cfg.MarketConcurrency)
	for i, id := range companies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			rec, err := callWithTimeout(ctx, o.cfg.Timeouts.Market, func(ctx context.Context) (models.MarketRecord, error) {
				return o.collab.Market.FetchMarketData(ctx, id)
			})
			if err == nil && rec.CompanyID == "" {
				rec.CompanyID = id
			}
			rec.CompanyID = strings.ToUpper(rec.CompanyID)
			results[i] = lookup{rec: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, r.fail(models.StageMarketData, started, err)
	}

	records := make([]models.MarketRecord, 0, len(companies))
	var failed []string
	for i, res := range results {
		if res.err != nil {
			failed = append(failed, companies[i])
			o.metrics.RecordMarketLookup("failed")
			r.log.Warn("market lookup failed",
				applogger.String("stage", string(models.StageMarketData)),
				applogger.String("company", companies[i]),
				applogger.Error(res.err),
			)
			continue
		}
		o.metrics.RecordMarketLookup("ok")
		records = append(records, res.rec)
	}

	status := models.StatusOK
	detail := fmt.Sprintf("%d of %d companies", len(records), len(companies))
	if len(failed) > 0 {
		status = models.StatusDegraded
		detail += "; unavailable: " + strings.Join(failed, ",")
	}
	r.record(models.StageMarketData, status, started, detail)
	return records, failed, nil
}

// buildPool assembles market chunks and, when a corpus is configured, the
// stored chunks of the covered companies. Corpus failures are ignored.
func (r *run) buildPool(ctx context.Context, records []models.MarketRecord, covered []string) []models.Chunk {
	o := r.o
	var pool []models.Chunk
	for _, rec := range records {
		pool = append(pool, BuildMarketChunks(rec)...)
	}
	if o.corpus == nil {
		return pool
	}
	chunks, err := callWithTimeout(ctx, o.cfg.Timeouts.Corpus, func(ctx context.Context) ([]models.Chunk, error) {
		return o.corpus.ListChunks(ctx, covered, o.cfg.CorpusLimit)
	})
	if err != nil {
		r.log.Warn("corpus lookup failed", applogger.String("stage", string(models.StageRetrieval)), applogger.Error(err))
		return pool
	}
	return append(pool, chunks...)
}

func (r *run) generateBrief(ctx context.Context, query string, covered []string, ranked []models.RankedChunk) (models.Brief, error) {
	o := r.o
	started := o.now()
	if err := ctx.Err(); err != nil {
		return models.Brief{}, r.fail(models.StageBriefGeneration, started, err)
	}
	brief, err := callWithTimeout(ctx, o.cfg.Timeouts.Brief, func(ctx context.Context) (models.Brief, error) {
		return o.collab.Brief.GenerateBrief(ctx, query, covered, ranked)
	})
	if err != nil {
		return models.Brief{}, r.fail(models.StageBriefGeneration, started, err)
	}
	brief.Text = strings.TrimSpace(brief.Text)
	if brief.Text == "" {
		return models.Brief{}, r.fail(models.StageBriefGeneration, started, ErrEmptyBrief)
	}
	brief.CompaniesCovered = covered
	r.record(models.StageBriefGeneration, models.StatusOK, started, "")
	return brief, nil
}

// synthesize is non-fatal: a failure leaves the response without audio.
// Only caller cancellation stops the request here.
func (r *run) synthesize(ctx context.Context, text string) ([]byte, error) {
	o := r.o
	started := o.now()
	if !NeedsSynthesis(r.req.WantsAudioOutput, o.cfg.AudioEnabled) {
		r.record(models.StageSynthesis, models.StatusSkipped, started, "")
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(models.StageSynthesis, started, err)
	}
	audio, err := callWithTimeout(ctx, o.cfg.Timeouts.Synthesize, func(ctx context.Context) ([]byte, error) {
		return o.collab.Synthesizer.Synthesize(ctx, text)
	})
	if err == nil && len(audio) == 0 {
		err = errors.New("synthesizer returned no audio")
	}
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, r.fail(models.StageSynthesis, started, cerr)
		}
		r.log.Warn("synthesis failed", applogger.String("stage", string(models.StageSynthesis)), applogger.Error(err))
		r.record(models.StageSynthesis, models.StatusFailed, started, err.Error())
		return nil, nil
	}
	r.record(models.StageSynthesis, models.StatusOK, started, "")
	return audio, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordRequest(string)                {}
func (nopMetrics) RecordStage(string, string, float64) {}
func (nopMetrics) RecordMarketLookup(string)           {}
func (nopMetrics) RecordRetrieved(int)                 {}
