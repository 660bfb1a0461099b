package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"FinBrief/internal/domain/models"
	"FinBrief/internal/usecase"
	xhttp "FinBrief/pkg/http"
	"FinBrief/pkg/http/middleware"

	"github.com/labstack/echo/v4"
)

type fakeProcessor struct {
	got  models.Request
	resp models.Response
	err  error
}

func (f *fakeProcessor) Process(_ context.Context, req models.Request) (models.Response, error) {
	f.got = req
	if f.err != nil {
		return models.Response{}, f.err
	}
	resp := f.resp
	resp.RequestID = req.ID
	return resp, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.BriefEvent
}

func (f *fakeEvents) PublishBriefEvent(_ context.Context, ev models.BriefEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(p Processor, ev *fakeEvents, rl *middleware.RateLimiter) *echo.Echo {
	e := echo.New()
	NewBriefEchoHandler(nil, p, ev, rl, 1<<20).RegisterRoutes(e)
	return e
}

func okResponse() models.Response {
	return models.Response{
		Brief:     models.Brief{Text: "Tesla closed higher.", CompaniesCovered: []string{"TSLA"}},
		Audio:     []byte("mp3"),
		AudioMIME: "audio/mpeg",
		Stages:    []models.StageReport{{Stage: models.StageReceived, Status: models.StatusOK}},
	}
}

func TestProcessJSONText(t *testing.T) {
	p := &fakeProcessor{resp: okResponse()}
	ev := &fakeEvents{}
	e := newTestServer(p, ev, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"input_text":" How is Tesla? ","response_mode":"audio"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if p.got.Modality != models.ModalityText || p.got.Text != "How is Tesla?" || !p.got.WantsAudioOutput || p.got.ID == "" {
		t.Fatalf("unexpected pipeline request %+v", p.got)
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var out models.ProcessResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Brief.Text != "Tesla closed higher." || out.AudioBase64 != "bXAz" || len(out.Stages) != 1 {
		t.Fatalf("unexpected response %+v", out)
	}
	if len(ev.events) != 1 || ev.events[0].Type != eventCompleted || !ev.events[0].HasAudio {
		t.Fatalf("expected completed event, got %+v", ev.events)
	}
}

func TestProcessMultipartAudioFormat(t *testing.T) {
	p := &fakeProcessor{resp: okResponse()}
	e := newTestServer(p, &fakeEvents{}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("response_mode", "audio")
	part, _ := w.CreateFormFile(audioField, "q.wav")
	_, _ = part.Write([]byte("RIFF"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process?format=audio", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderContentType) != "audio/mpeg" || rec.Body.String() != "mp3" {
		t.Fatalf("expected audio body, got %q %q", rec.Header().Get(echo.HeaderContentType), rec.Body.String())
	}
	if p.got.Modality != models.ModalityVoice || string(p.got.Audio) != "RIFF" {
		t.Fatalf("unexpected pipeline request %+v", p.got)
	}
}

func TestProcessRequiresInput(t *testing.T) {
	p := &fakeProcessor{}
	e := newTestServer(p, &fakeEvents{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"input_text":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if p.got.ID != "" {
		t.Fatalf("pipeline must not run without input")
	}
}

func TestProcessResponseModeDefaultsToAudio(t *testing.T) {
	for body, wantAudio := range map[string]bool{
		`{"input_text":"tesla"}`:                         true,
		`{"input_text":"tesla","response_mode":"text"}`: false,
	} {
		p := &fakeProcessor{resp: okResponse()}
		e := newTestServer(p, &fakeEvents{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", body, rec.Code)
		}
		if p.got.WantsAudioOutput != wantAudio {
			t.Fatalf("%s: expected wants audio %t, got %t", body, wantAudio, p.got.WantsAudioOutput)
		}
	}
}

func TestProcessRejectsUnknownResponseMode(t *testing.T) {
	e := newTestServer(&fakeProcessor{}, &fakeEvents{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"input_text":"tesla","response_mode":"video"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProcessPipelineErrorMapsToBadGateway(t *testing.T) {
	p := &fakeProcessor{err: &usecase.PipelineError{Stage: models.StageBriefGeneration, Cause: usecase.ErrEmptyBrief}}
	ev := &fakeEvents{}
	e := newTestServer(p, ev, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"input_text":"tesla"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var errs []xhttp.AppError
	if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 {
		t.Fatalf("decode errors: %v %s", err, env.Data)
	}
	if errs[0].Code != xhttp.CodePipelineStage || errs[0].Params["stage"] != "brief_generation" {
		t.Fatalf("unexpected error %+v", errs[0])
	}
	if len(ev.events) != 1 || ev.events[0].Type != eventFailed || ev.events[0].Stage != "brief_generation" {
		t.Fatalf("expected failed event, got %+v", ev.events)
	}
}

func TestProcessRateLimited(t *testing.T) {
	p := &fakeProcessor{resp: okResponse()}
	e := newTestServer(p, &fakeEvents{}, middleware.NewRateLimiter(0.001, 1))

	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"input_text":"tesla"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		last = httptest.NewRecorder()
		e.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
	var env envelope
	_ = json.Unmarshal(last.Body.Bytes(), &env)
	var errs []xhttp.AppError
	if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != xhttp.CodeTooManyRequests {
		t.Fatalf("expected rate limit error envelope, got %s", last.Body.String())
	}
}

func TestProcessUnstagedErrorMapsToInternal(t *testing.T) {
	p := &fakeProcessor{err: context.DeadlineExceeded}
	e := newTestServer(p, &fakeEvents{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"input_text":"tesla"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var errs []xhttp.AppError
	if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != xhttp.CodeInternal {
		t.Fatalf("expected internal error envelope, got %s", rec.Body.String())
	}
}
