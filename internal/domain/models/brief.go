package models

import "time"

// Brief is the final narrative.
type Brief struct {
	Text             string   `json:"text"`
	CompaniesCovered []string `json:"companies_covered"`
	Degraded         bool     `json:"degraded"`
	Caveat           string   `json:"caveat,omitempty"`
}

// Stage names a pipeline step.
type Stage string

const (
	StageReceived         Stage = "received"
	StageTranscribe       Stage = "transcribe"
	StageIntentExtraction Stage = "intent_extraction"
	StageMarketData       Stage = "market_data"
	StageRetrieval        Stage = "retrieval"
	StageBriefGeneration  Stage = "brief_generation"
	StageSynthesis        Stage = "synthesis"
	StageDone             Stage = "done"
)

// StageStatus is the outcome of a stage.
type StageStatus string

const (
	StatusOK       StageStatus = "ok"
	StatusSkipped  StageStatus = "skipped"
	StatusDegraded StageStatus = "degraded"
	StatusFailed   StageStatus = "failed"
)

// StageReport traces one stage of a processed request.
type StageReport struct {
	Stage    Stage         `json:"stage"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Detail   string        `json:"detail,omitempty"`
}

// Response is the result of a successful pipeline run. Audio is nil when absent.
type Response struct {
	RequestID string        `json:"request_id"`
	Brief     Brief         `json:"brief"`
	Audio     []byte        `json:"-"`
	AudioMIME string        `json:"audio_mime,omitempty"`
	Stages    []StageReport `json:"stages"`
}

// HasAudio reports whether synthesized audio is present.
func (r Response) HasAudio() bool {
	return len(r.Audio) > 0
}
