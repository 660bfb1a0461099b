package models

import "time"

// Modality is the input kind of a request.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	return m == ModalityText || m == ModalityVoice
}

// Request is one accepted query. It is passed by value and never mutated.
type Request struct {
	ID               string
	Modality         Modality
	Text             string
	Audio            []byte
	AudioMIME        string
	WantsAudioOutput bool
	ReceivedAt       time.Time
}

// Transcript is produced only for voice requests.
type Transcript struct {
	Text      string
	RequestID string
}

// Intent is the structured output of intent extraction. Companies may be empty.
type Intent struct {
	Companies []string `json:"companies"`
	RawQuery  string   `json:"raw_query"`
}
