package collab

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"strings"
	"time"

	domsvc "FinBrief/internal/domain/service"
)

// HTTPTranscriber uploads audio to the speech-to-text service.
type HTTPTranscriber struct {
	base *HTTPServiceBase
}

func NewHTTPTranscriber(baseURL string, timeout time.Duration, attempts int) *HTTPTranscriber {
	return &HTTPTranscriber{base: NewHTTPServiceBase(baseURL, timeout, attempts)}
}

type transcribeResponse struct {
	Text          string `json:"text"`
	Transcription string `json:"transcription"`
}

// Transcribe posts the audio as the multipart field "file".
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "audio"+extensionFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	var out transcribeResponse
	headers := map[string]string{"Content-Type": w.FormDataContentType()}
	if err := t.base.Post(ctx, "/transcribe", headers, buf.Bytes(), &out); err != nil {
		return "", err
	}
	if out.Text != "" {
		return out.Text, nil
	}
	return out.Transcription, nil
}

// extensionFor maps an upload content type to a file extension the
// speech service accepts. Unknown types fall back to .wav.
func extensionFor(mimeType string) string {
	mt, _, _ := mime.ParseMediaType(mimeType)
	switch strings.ToLower(mt) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".wav"
	}
}

var _ domsvc.Transcriber = (*HTTPTranscriber)(nil)
