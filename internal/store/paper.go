package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// paperRepo implements PaperRepo with ent's SQL builder.
type paperRepo struct {
	db *sql.DB
}

func (r *paperRepo) Save(ctx context.Context, rec *PaperRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("save paper: run ID is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query, args := builder().Insert(tablePapers).
		Columns("run_id", "created_at", "outcome", "source", "target_marks", "total_marks", "question_count", "body").
		Values(rec.RunID, rec.CreatedAt, rec.Outcome, rec.Source, rec.TargetMarks, rec.TotalMarks, rec.QuestionCount, string(rec.Body)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save paper %s: %w", rec.RunID, err)
	}
	return nil
}

var paperSummaryColumns = []string{"run_id", "created_at", "outcome", "source", "target_marks", "total_marks", "question_count"}

func (r *paperRepo) List(ctx context.Context, limit int) ([]PaperRecord, error) {
	sel := builder().Select(paperSummaryColumns...).
		From(builder().Table(tablePapers)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var out []PaperRecord
	for rows.Next() {
		var p PaperRecord
		if err := rows.Scan(&p.RunID, &p.CreatedAt, &p.Outcome, &p.Source, &p.TargetMarks, &p.TotalMarks, &p.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paperRepo) Get(ctx context.Context, runID string) (*PaperRecord, error) {
	query, args := builder().Select(append(paperSummaryColumns, "body")...).
		From(builder().Table(tablePapers)).
		Where(entsql.EQ("run_id", runID)).
		Query()

	var p PaperRecord
	var body string
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&p.RunID, &p.CreatedAt, &p.Outcome, &p.Source, &p.TargetMarks, &p.TotalMarks, &p.QuestionCount, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paper %s: %w", runID, err)
	}
	p.Body = []byte(body)
	return &p, nil
}

func (r *paperRepo) Prune(ctx context.Context, keep int) error {
	// Find the id of the newest paper that falls outside the window.
	query, args := builder().Select("id").
		From(builder().Table(tablePapers)).
		OrderBy(entsql.Desc("id")).
		Offset(keep).
		Limit(1).
		Query()

	var cutoff int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query papers for prune: %w", err)
	}

	query, args = builder().Delete(tablePapers).Where(entsql.LTE("id", cutoff)).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune papers: %w", err)
	}
	return nil
}
