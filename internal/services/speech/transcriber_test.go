package speech

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

type fakeRecognizer struct {
	got  *speechpb.RecognizeRequest
	resp *speechpb.RecognizeResponse
	err  error
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestTranscribeJoinsResults(t *testing.T) {
	rec := &fakeRecognizer{resp: &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "how is tesla "}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "doing today"}}},
		{},
	}}}
	tr := newTranscriber(rec, "", 16000)

	text, err := tr.Transcribe(context.Background(), []byte{1, 2}, "audio/ogg; codecs=opus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "how is tesla doing today" {
		t.Fatalf("unexpected transcript %q", text)
	}
	cfg := rec.got.GetConfig()
	if cfg.GetLanguageCode() != "en-US" || cfg.GetEncoding() != speechpb.RecognitionConfig_OGG_OPUS || cfg.GetSampleRateHertz() != 16000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if string(rec.got.GetAudio().GetContent()) != "\x01\x02" {
		t.Fatalf("audio not forwarded")
	}
}

func TestTranscribeError(t *testing.T) {
	tr := newTranscriber(&fakeRecognizer{err: errors.New("quota")}, "en-GB", 0)
	if _, err := tr.Transcribe(context.Background(), []byte{1}, "audio/wav"); err == nil {
		t.Fatalf("expected error")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close without client: %v", err)
	}
}
