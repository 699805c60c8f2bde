// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// SaveRun records a ranking run and its ranked results.
func (s *Store) SaveRun(ctx context.Context, run types.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, interest, source, embedding_model, semantic_weight, top_k, total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeFormat), run.Interest, run.Source,
		run.EmbeddingModel, run.SemanticWeight, run.TopK, run.Total,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_results (run_id, rank, title, authors, abstract, url, similarity_score, rule_score, final_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range run.Results {
		_, err := stmt.ExecContext(ctx, run.ID, i+1, p.Title, p.Authors, p.Abstract, p.URL,
			p.SimilarityScore, p.RuleScore, p.FinalScore)
		if err != nil {
			return fmt.Errorf("inserting result %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// Runs lists saved runs, newest first, without their results. limit <= 0
// means no limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]types.Run, error) {
	query := `SELECT id, created_at, COALESCE(interest, ''), COALESCE(source, ''), COALESCE(embedding_model, ''),
			semantic_weight, top_k, total
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns one saved run with its results in rank order.
func (s *Store) Run(ctx context.Context, id string) (types.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, COALESCE(interest, ''), COALESCE(source, ''), COALESCE(embedding_model, ''),
			semantic_weight, top_k, total
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Run{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(title, ''), COALESCE(authors, ''), COALESCE(abstract, ''), COALESCE(url, ''),
			similarity_score, rule_score, final_score
		FROM run_results WHERE run_id = ? ORDER BY rank`, id)
	if err != nil {
		return types.Run{}, fmt.Errorf("querying run results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p types.ScoredPaper
		if err := rows.Scan(&p.Title, &p.Authors, &p.Abstract, &p.URL,
			&p.SimilarityScore, &p.RuleScore, &p.FinalScore); err != nil {
			return types.Run{}, fmt.Errorf("scanning run result: %w", err)
		}
		run.Results = append(run.Results, p)
	}
	return run, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (types.Run, error) {
	var (
		run     types.Run
		created string
	)
	err := sc.Scan(&run.ID, &created, &run.Interest, &run.Source, &run.EmbeddingModel,
		&run.SemanticWeight, &run.TopK, &run.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scanning run: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return run, nil
}
