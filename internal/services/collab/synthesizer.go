package collab

import (
	"context"
	"errors"
	"strings"
	"time"

	domsvc "FinBrief/internal/domain/service"
)

// DefaultVoice is the text-to-speech voice used when none is configured.
const DefaultVoice = "en-US-AriaNeural"

var ErrEmptyText = errors.New("text input cannot be empty")

// HTTPSynthesizer calls the text-to-speech service and returns MP3 audio.
type HTTPSynthesizer struct {
	base  *HTTPServiceBase
	voice string
}

func NewHTTPSynthesizer(baseURL, voice string, timeout time.Duration, attempts int) *HTTPSynthesizer {
	if voice == "" {
		voice = DefaultVoice
	}
	return &HTTPSynthesizer{base: NewHTTPServiceBase(baseURL, timeout, attempts), voice: voice}
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	var audio []byte
	if err := s.base.PostJSON(ctx, "/speak", speakRequest{Text: text, Voice: s.voice}, &audio); err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("speech service returned no audio")
	}
	return audio, nil
}

var _ domsvc.Synthesizer = (*HTTPSynthesizer)(nil)
