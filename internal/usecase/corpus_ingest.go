package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domrepo "FinBrief/internal/domain/repository"
	pkgkafka "FinBrief/pkg/kafka"
	applogger "FinBrief/pkg/logger"
	"FinBrief/pkg/util"

	"github.com/google/uuid"
)

const defaultCorpusSource = "corpus"

// corpusNamespace scopes the name-based chunk ids.
var corpusNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("finbrief:corpus"))

// CorpusIngestHandler stores corpus documents consumed from Kafka as chunks.
type CorpusIngestHandler struct {
	topic      string
	store      domrepo.CorpusStore
	chunkWords int
	log        *applogger.Logger
	now        func() time.Time
}

func NewCorpusIngestHandler(topic string, store domrepo.CorpusStore, chunkWords int, l *applogger.Logger) *CorpusIngestHandler {
	if chunkWords <= 0 {
		chunkWords = 120
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CorpusIngestHandler{
		topic:      topic,
		store:      store,
		chunkWords: chunkWords,
		log:        l,
		now:        time.Now,
	}
}

func (h *CorpusIngestHandler) Topic() string { return h.topic }

// Handle decodes one document. Malformed documents are permanent failures;
// store errors are returned as is so the consumer retries them.
func (h *CorpusIngestHandler) Handle(ctx context.Context, data []byte) error {
	var doc models.CorpusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode corpus document: %w", err))
	}
	chunks, err := h.chunks(doc)
	if err != nil {
		return pkgkafka.Permanent(err)
	}
	if err := h.store.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save corpus chunks: %w", err)
	}
	h.log.Debug("corpus document stored",
		applogger.String("company", doc.CompanyID),
		applogger.Int("chunks", len(chunks)),
	)
	return nil
}

func (h *CorpusIngestHandler) chunks(doc models.CorpusDocument) ([]models.Chunk, error) {
	parts := SplitWords(doc.Text, h.chunkWords)
	if len(parts) == 0 {
		return nil, errors.New("corpus document has no text")
	}
	published := util.ParseTimeDefault(doc.PublishedAt, h.now().UTC())
	source := doc.Source
	if source == "" {
		source = defaultCorpusSource
	}
	weight := doc.SourceWeight
	if weight <= 0 {
		weight = 1
	}
	company := strings.ToUpper(strings.TrimSpace(doc.CompanyID))

	out := make([]models.Chunk, 0, len(parts))
	for i, p := range parts {
		out = append(out, models.Chunk{
			ID:               ChunkID(company, source, doc.PublishedAt, i, p),
			CompanyID:        company,
			Text:             p,
			RecencyTimestamp: published,
			SourceWeight:     weight,
			Source:           source,
		})
	}
	return out, nil
}

// ChunkID derives a stable id from the document identity and the chunk
// position, so a redelivered document replaces its earlier rows.
func ChunkID(company, source, publishedAt string, index int, text string) string {
	name := strings.Join([]string{company, source, strings.TrimSpace(publishedAt), strconv.Itoa(index), text}, "|")
	return uuid.NewSHA1(corpusNamespace, []byte(name)).String()
}

// SplitWords splits text into chunks of at most n words.
func SplitWords(text string, n int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if n <= 0 {
		n = len(words)
	}
	out := make([]string, 0, (len(words)+n-1)/n)
	for start := 0; start < len(words); start += n {
		end := min(start+n, len(words))
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}

var _ pkgkafka.MessageHandler = (*CorpusIngestHandler)(nil)
