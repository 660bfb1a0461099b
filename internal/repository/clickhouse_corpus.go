package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domrepo "FinBrief/internal/domain/repository"
	applogger "FinBrief/pkg/logger"
)

// insertChunkSize caps the rows of one multi-VALUES insert.
const insertChunkSize = 1000

// CorpusSchema returns the DDL of the corpus table.
func CorpusSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            id String,
            company_id LowCardinality(String),
            text String,
            recency DateTime64(3, 'UTC'),
            source_weight Float64,
            source LowCardinality(String),
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (company_id, id)`, database, table),
	}
}

// CHCorpusStore implements CorpusStore backed by ClickHouse.
type CHCorpusStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHCorpusStore uses table as a fully qualified name (db.table).
func NewCHCorpusStore(db *sql.DB, table string, l *applogger.Logger) *CHCorpusStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCorpusStore{db: db, table: table, l: l}
}

// ListChunks returns the newest chunks of the given companies together with
// general chunks (empty company id).
func (s *CHCorpusStore) ListChunks(ctx context.Context, companies []string, limit int) ([]models.Chunk, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 50
	}

	where := "company_id = ''"
	args := make([]interface{}, 0, len(companies)+1)
	if len(companies) > 0 {
		ph := make([]string, len(companies))
		for i, c := range companies {
			ph[i] = "?"
			args = append(args, strings.ToUpper(c))
		}
		where = fmt.Sprintf("company_id IN (%s) OR company_id = ''", strings.Join(ph, ", "))
	}
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT id, company_id, text, recency, source_weight, source
        FROM %s FINAL
        WHERE %s
        ORDER BY recency DESC, id ASC
        LIMIT ?`, s.table, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse list_chunks query error",
			applogger.String("table", s.table),
			applogger.Strings("companies", companies),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chunk, 0, limit)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Text, &c.RecencyTimestamp, &c.SourceWeight, &c.Source); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse list_chunks ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// SaveChunks inserts chunks in multi-row batches.
func (s *CHCorpusStore) SaveChunks(ctx context.Context, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += insertChunkSize {
		end := min(start+insertChunkSize, len(chunks))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, c := range chunks[start:end] {
			if c.ID == "" || c.Text == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, c.ID, c.CompanyID, c.Text, c.RecencyTimestamp.UTC(), c.SourceWeight, c.Source)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, company_id, text, recency, source_weight, source) VALUES %s",
			s.table, strings.Join(values, ", "))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_chunks error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("insert chunks: %w", err)
		}
	}
	return nil
}

var _ domrepo.CorpusStore = (*CHCorpusStore)(nil)
