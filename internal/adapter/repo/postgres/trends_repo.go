package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the archive for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS archived_trends (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	virality_score INTEGER NOT NULL DEFAULT 0,
	category       TEXT NOT NULL,
	sound_name     TEXT NOT NULL DEFAULT '',
	hashtags       TEXT[] NOT NULL DEFAULT '{}',
	example_idea   TEXT NOT NULL DEFAULT '',
	ugc_examples   TEXT[] NOT NULL DEFAULT '{}',
	language       TEXT NOT NULL,
	scanned_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS archived_trends_category_scanned_at_idx ON archived_trends (category, scanned_at DESC);
CREATE INDEX IF NOT EXISTS archived_trends_scanned_at_idx ON archived_trends (scanned_at);
`

const insertTrendSQL = `INSERT INTO archived_trends
	(id, name, description, virality_score, category, sound_name, hashtags, example_idea, ugc_examples, language, scanned_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (id) DO NOTHING`

const latestTrendsSQL = `SELECT id, name, description, virality_score, category, sound_name, hashtags, example_idea, ugc_examples, language, scanned_at
	FROM archived_trends
	WHERE ($1 = '' OR category = $1)
	ORDER BY scanned_at DESC, id
	LIMIT $2`

// TrendArchive persists scanned trends.
type TrendArchive struct{ Pool PgxPool }

// NewTrendArchive constructs a TrendArchive with the given pool.
func NewTrendArchive(p PgxPool) *TrendArchive { return &TrendArchive{Pool: p} }

// EnsureSchema creates the archive table and its indexes if missing.
func (r *TrendArchive) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=trends.ensure_schema: %w", err)
	}
	return nil
}

// SaveBatch stores all trends of one scan atomically.
func (r *TrendArchive) SaveBatch(ctx domain.Context, trends []domain.ArchivedTrend) (err error) {
	if len(trends) == 0 {
		return nil
	}
	ctx, span := otel.Tracer("repo.trends").Start(ctx, "trends.SaveBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int("trends.count", len(trends)),
	)

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=trends.save_batch: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	for _, t := range trends {
		_, err = tx.Exec(ctx, insertTrendSQL,
			t.ID, t.Name, t.Description, t.ViralityScore, t.Category, t.SoundName,
			nonNil(t.Hashtags), t.ExampleIdea, nonNil(t.UGCExamples), string(t.Language), t.ScannedAt.UTC())
		if err != nil {
			return fmt.Errorf("op=trends.save_batch: insert %s: %w", t.ID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=trends.save_batch: commit: %w", err)
	}
	return nil
}

// Latest returns the most recently scanned trends, newest first. An empty
// category matches every category.
func (r *TrendArchive) Latest(ctx domain.Context, category string, limit int) ([]domain.ArchivedTrend, error) {
	ctx, span := otel.Tracer("repo.trends").Start(ctx, "trends.Latest")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("trends.category", category))

	rows, err := r.Pool.Query(ctx, latestTrendsSQL, category, limit)
	if err != nil {
		return nil, fmt.Errorf("op=trends.latest: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ArchivedTrend, 0, limit)
	for rows.Next() {
		var t domain.ArchivedTrend
		var lang string
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.ViralityScore, &t.Category, &t.SoundName,
			&t.Hashtags, &t.ExampleIdea, &t.UGCExamples, &lang, &t.ScannedAt); err != nil {
			return nil, fmt.Errorf("op=trends.latest: scan: %w", err)
		}
		t.Language = domain.Language(lang)
		t.Hashtags = nonNil(t.Hashtags)
		t.UGCExamples = nonNil(t.UGCExamples)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=trends.latest: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
