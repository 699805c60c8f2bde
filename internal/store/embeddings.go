// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// maxKeysPerQuery bounds the number of bound parameters in one lookup.
const maxKeysPerQuery = 500

// GetVectors returns the cached vectors for keys under model. Keys with no
// entry are absent from the map.
func (s *Store) GetVectors(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	for start := 0; start < len(keys); start += maxKeysPerQuery {
		end := min(start+maxKeysPerQuery, len(keys))
		chunk := keys[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, model)
		for _, k := range chunk {
			args = append(args, k)
		}
		query := `SELECT text_hash, vector FROM embeddings WHERE model = ? AND text_hash IN (?` +
			strings.Repeat(",?", len(chunk)-1) + `)`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("querying embeddings: %w", err)
		}
		for rows.Next() {
			var (
				key  string
				blob []byte
			)
			if err := rows.Scan(&key, &blob); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning embedding: %w", err)
			}
			vec, err := decodeVector(blob)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("embedding %s: %w", key, err)
			}
			out[key] = vec
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PutVectors stores vectors under model, replacing existing entries.
func (s *Store) PutVectors(ctx context.Context, model string, vectors map[string][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (model, text_hash, dim, vector, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(model, text_hash) DO UPDATE SET dim=excluded.dim, vector=excluded.vector, created_at=excluded.created_at`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeFormat)
	for key, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, model, key, len(vec), encodeVector(vec), now); err != nil {
			return fmt.Errorf("inserting embedding: %w", err)
		}
	}
	return tx.Commit()
}

// EmbeddingStats reports the number of cached vectors per model.
func (s *Store) EmbeddingStats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model, COUNT(*) FROM embeddings GROUP BY model`)
	if err != nil {
		return nil, fmt.Errorf("querying embedding stats: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			model string
			n     int
		)
		if err := rows.Scan(&model, &n); err != nil {
			return nil, err
		}
		out[model] = n
	}
	return out, rows.Err()
}

// ClearEmbeddings deletes cached vectors for model, or for every model when
// model is empty, and returns the number removed.
func (s *Store) ClearEmbeddings(ctx context.Context, model string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if model == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM embeddings`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE model = ?`, model)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing embeddings: %w", err)
	}
	return res.RowsAffected()
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
