// Package speech transcribes uploaded audio with Google Cloud Speech-to-Text.
package speech

import (
	"context"
	"fmt"
	"mime"
	"strings"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	domsvc "FinBrief/internal/domain/service"
)

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

// clientRecognizer drops the call options of the generated client.
type clientRecognizer struct {
	c *speechapi.Client
}

func (r clientRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return r.c.Recognize(ctx, req)
}

// Transcriber runs synchronous recognition. It relies on Application
// Default Credentials.
type Transcriber struct {
	client       *speechapi.Client
	rec          recognizer
	languageCode string
	sampleRate   int32
}

func NewTranscriber(ctx context.Context, languageCode string, sampleRate int32) (*Transcriber, error) {
	c, err := speechapi.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	t := newTranscriber(clientRecognizer{c: c}, languageCode, sampleRate)
	t.client = c
	return t, nil
}

func newTranscriber(rec recognizer, languageCode string, sampleRate int32) *Transcriber {
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &Transcriber{rec: rec, languageCode: languageCode, sampleRate: sampleRate}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := t.rec.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(mimeType),
			SampleRateHertz:            t.sampleRate,
			LanguageCode:               t.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	parts := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}
	return strings.Join(parts, " "), nil
}

// encodingFor maps a content type to a recognition encoding. WAV and FLAC
// carry their own headers, so they are left unspecified.
func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	mt, _, _ := mime.ParseMediaType(mimeType)
	switch strings.ToLower(mt) {
	case "audio/ogg", "audio/opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "audio/l16", "audio/pcm":
		return speechpb.RecognitionConfig_LINEAR16
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// Close releases the underlying gRPC connection.
func (t *Transcriber) Close() error {
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}

var _ domsvc.Transcriber = (*Transcriber)(nil)
