package models

// ProcessRequest is the JSON body accepted by the process endpoint.
type ProcessRequest struct {
	InputText    string `json:"input_text" form:"input_text"`
	ResponseMode string `json:"response_mode" form:"response_mode" default:"audio" validate:"oneof=text audio"`
	Format       string `query:"format" default:"json" validate:"oneof=json audio"`
}

// BriefView is the serialized brief.
type BriefView struct {
	Text             string   `json:"text"`
	CompaniesCovered []string `json:"companies_covered"`
	Degraded         bool     `json:"degraded"`
	Caveat           string   `json:"caveat,omitempty"`
}

// StageView is the serialized stage trace.
type StageView struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
}

// ProcessResponse is returned by the process endpoint.
type ProcessResponse struct {
	RequestID   string      `json:"request_id"`
	Brief       BriefView   `json:"brief"`
	AudioBase64 string      `json:"audio_base64,omitempty"`
	AudioMIME   string      `json:"audio_mime,omitempty"`
	Stages      []StageView `json:"stages"`
}

// CorpusDocument is the payload of the corpus ingest topic.
type CorpusDocument struct {
	CompanyID    string  `json:"company_id"`
	Text         string  `json:"text"`
	PublishedAt  string  `json:"published_at"`
	Source       string  `json:"source"`
	SourceWeight float64 `json:"source_weight"`
}

// BriefEvent is published after each processed request.
type BriefEvent struct {
	Type             string   `json:"type"`
	RequestID        string   `json:"request_id"`
	Modality         string   `json:"modality"`
	CompaniesCovered []string `json:"companies_covered,omitempty"`
	Degraded         bool     `json:"degraded"`
	HasAudio         bool     `json:"has_audio"`
	Stage            string   `json:"stage,omitempty"`
	Error            string   `json:"error,omitempty"`
	OccurredAt       string   `json:"occurred_at"`
}
