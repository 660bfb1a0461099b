package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domrepo "FinBrief/internal/domain/repository"
	"FinBrief/internal/usecase"
	xhttp "FinBrief/pkg/http"
	"FinBrief/pkg/http/middleware"
	xlogger "FinBrief/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	eventCompleted = "brief.completed"
	eventFailed    = "brief.failed"

	audioField   = "audio_file"
	eventTimeout = 2 * time.Second
)

// Processor runs one request through the pipeline.
type Processor interface {
	Process(ctx context.Context, req models.Request) (models.Response, error)
}

// BriefEchoHandler serves the process endpoint.
type BriefEchoHandler struct {
	logger    *xlogger.Logger
	pipeline  Processor
	events    domrepo.EventPublisher
	limiter   *middleware.RateLimiter
	maxUpload int64
	now       func() time.Time
}

func NewBriefEchoHandler(logger *xlogger.Logger, pipeline Processor, events domrepo.EventPublisher, limiter *middleware.RateLimiter, maxUpload int64) *BriefEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &BriefEchoHandler{
		logger:    logger,
		pipeline:  pipeline,
		events:    events,
		limiter:   limiter,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

func (h *BriefEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter, func(c echo.Context) error {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError())
		}))
	}
	g.POST("/process", h.Process)
}

// Process accepts a multipart form (audio_file, input_text, response_mode)
// or a JSON body. With ?format=audio the synthesized audio is returned as
// the response body when present.
func (h *BriefEchoHandler) Process(c echo.Context) error {
	body := &models.ProcessRequest{}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, body); err != nil {
		return xhttp.BadRequestResponse(c, []*xhttp.AppError{xhttp.BadRequestError("format", "invalid query parameters")})
	}
	if verr := xhttp.ReadAndValidateRequest(c, body); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	audio, mime, err := h.readAudio(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	req := models.Request{
		ID:               requestID(c),
		Modality:         models.ModalityText,
		Text:             strings.TrimSpace(body.InputText),
		WantsAudioOutput: body.ResponseMode == "audio",
		ReceivedAt:       h.now().UTC(),
	}
	if len(audio) > 0 {
		req.Modality = models.ModalityVoice
		req.Audio = audio
		req.AudioMIME = mime
	} else if req.Text == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("input_text", "either audio_file or input_text is required"))
	}

	resp, err := h.pipeline.Process(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, req, err)
	}
	h.publish(c.Request().Context(), completedEvent(req, resp, h.now()))

	if body.Format == "audio" && resp.HasAudio() {
		return c.Blob(http.StatusOK, resp.AudioMIME, resp.Audio)
	}
	return xhttp.SuccessResponse(c, toView(resp))
}

func (h *BriefEchoHandler) fail(c echo.Context, req models.Request, err error) error {
	stage, staged := usecase.StageOf(err)
	h.publish(c.Request().Context(), models.BriefEvent{
		Type:       eventFailed,
		RequestID:  req.ID,
		Modality:   string(req.Modality),
		Stage:      string(stage),
		Error:      err.Error(),
		OccurredAt: h.now().UTC().Format(time.RFC3339Nano),
	})
	if errors.Is(err, usecase.ErrInvalidRequest) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("", err.Error()).WithError(err))
	}
	h.logger.Error("process pipeline error",
		xlogger.String("request_id", req.ID),
		xlogger.String("stage", string(stage)),
		xlogger.Error(err),
	)
	if !staged {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("pipeline failed").WithError(err))
	}
	return xhttp.AppErrorResponse(c, xhttp.PipelineStageError(string(stage), err))
}

// readAudio returns the uploaded audio, or nil when the request carries none.
func (h *BriefEchoHandler) readAudio(c echo.Context) ([]byte, string, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, "", nil
	}
	fh, err := c.FormFile(audioField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", xhttp.BadRequestError(audioField, "invalid multipart upload").WithError(err)
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return nil, "", xhttp.BadRequestError(audioField, fmt.Sprintf("audio_file exceeds %d bytes", h.maxUpload)).
			WithParam("max", h.maxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", xhttp.BadRequestError(audioField, "cannot read audio_file").WithError(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", xhttp.BadRequestError(audioField, "cannot read audio_file").WithError(err)
	}
	return data, fh.Header.Get(echo.HeaderContentType), nil
}

// publish is best effort; a slow or failing broker never fails a request.
func (h *BriefEchoHandler) publish(ctx context.Context, ev models.BriefEvent) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := h.events.PublishBriefEvent(ctx, ev); err != nil {
		h.logger.Warn("brief event publish failed",
			xlogger.String("request_id", ev.RequestID),
			xlogger.String("type", ev.Type),
			xlogger.Error(err),
		)
	}
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

func completedEvent(req models.Request, resp models.Response, now time.Time) models.BriefEvent {
	return models.BriefEvent{
		Type:             eventCompleted,
		RequestID:        resp.RequestID,
		Modality:         string(req.Modality),
		CompaniesCovered: resp.Brief.CompaniesCovered,
		Degraded:         resp.Brief.Degraded,
		HasAudio:         resp.HasAudio(),
		OccurredAt:       now.UTC().Format(time.RFC3339Nano),
	}
}

func toView(resp models.Response) models.ProcessResponse {
	out := models.ProcessResponse{
		RequestID: resp.RequestID,
		Brief: models.BriefView{
			Text:             resp.Brief.Text,
			CompaniesCovered: resp.Brief.CompaniesCovered,
			Degraded:         resp.Brief.Degraded,
			Caveat:           resp.Brief.Caveat,
		},
		Stages: make([]models.StageView, 0, len(resp.Stages)),
	}
	if out.Brief.CompaniesCovered == nil {
		out.Brief.CompaniesCovered = []string{}
	}
	if resp.HasAudio() {
		out.AudioBase64 = base64.StdEncoding.EncodeToString(resp.Audio)
		out.AudioMIME = resp.AudioMIME
	}
	for _, s := range resp.Stages {
		out.Stages = append(out.Stages, models.StageView{
			Stage:      string(s.Stage),
			Status:     string(s.Status),
			DurationMS: s.Duration.Milliseconds(),
			Detail:     s.Detail,
		})
	}
	return out
}

var _ xhttp.Handler = (*BriefEchoHandler)(nil)
