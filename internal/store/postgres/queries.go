package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// runColumns is the column list used for SELECT statements on purge_runs.
const runColumns = `id, mode, first_day, last_day, org_uuid, dry_run, candidates,
	success, failed, outcome, error, started_at, finished_at`

// chunkColumns is the column list used for SELECT statements on purge_chunks.
const chunkColumns = `idx, event_ids, success, failed, status_code, error, at`

// defaultListLimit caps ListRuns when the caller passes a non-positive limit.
const defaultListLimit = 20

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryUpsertRun(ctx context.Context, db executor, r *model.Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO purge_runs (
			id, mode, first_day, last_day, org_uuid, dry_run, candidates,
			success, failed, outcome, error, started_at, finished_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (id) DO UPDATE SET
			candidates = EXCLUDED.candidates,
			success = EXCLUDED.success,
			failed = EXCLUDED.failed,
			outcome = EXCLUDED.outcome,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`,
		r.ID,
		string(r.Mode),
		r.First,
		r.Last,
		nullString(r.OrgUUID),
		r.DryRun,
		r.Candidates,
		r.Totals.Success,
		r.Totals.Failed,
		string(r.Outcome),
		nullString(r.Error),
		r.StartedAt,
		nullTime(r.FinishedAt),
	)
	return err
}

func queryDeleteChunks(ctx context.Context, db executor, runID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM purge_chunks WHERE run_id = $1`, runID)
	return err
}

func queryInsertChunk(ctx context.Context, db executor, runID string, c model.ChunkResult) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO purge_chunks (run_id, idx, event_ids, success, failed, status_code, error, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		runID,
		c.Index,
		pq.Array(idsToInt64(c.IDs)),
		c.Counters.Success,
		c.Counters.Failed,
		nullInt(c.StatusCode),
		nullString(c.Error),
		c.At,
	)
	return err
}

func queryGetRun(ctx context.Context, db executor, id string) (*model.Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM purge_runs WHERE id = $1`, id)
	return scanRun(row)
}

func queryListRuns(ctx context.Context, db executor, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM purge_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func queryGetChunks(ctx context.Context, db executor, runID string) ([]model.ChunkResult, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM purge_chunks WHERE run_id = $1 ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []model.ChunkResult
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}
