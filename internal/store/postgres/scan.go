package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRun scans a row in runColumns order.
func scanRun(row scannable) (*model.Run, error) {
	var (
		r          model.Run
		mode       string
		outcome    string
		orgUUID    sql.NullString
		errText    sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&r.ID,
		&mode,
		&r.First,
		&r.Last,
		&orgUUID,
		&r.DryRun,
		&r.Candidates,
		&r.Totals.Success,
		&r.Totals.Failed,
		&outcome,
		&errText,
		&r.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Mode = model.Mode(mode)
	r.Outcome = model.Outcome(outcome)
	r.OrgUUID = orgUUID.String
	r.Error = errText.String
	if finishedAt.Valid {
		r.FinishedAt = finishedAt.Time
	}
	return &r, nil
}

// scanChunk scans a row in chunkColumns order.
func scanChunk(row scannable) (model.ChunkResult, error) {
	var (
		c          model.ChunkResult
		ids        []int64
		statusCode sql.NullInt64
		errText    sql.NullString
	)
	err := row.Scan(
		&c.Index,
		pq.Array(&ids),
		&c.Counters.Success,
		&c.Counters.Failed,
		&statusCode,
		&errText,
		&c.At,
	)
	if err != nil {
		return model.ChunkResult{}, err
	}
	c.IDs = make([]model.ID, len(ids))
	for i, id := range ids {
		c.IDs[i] = model.ID(id)
	}
	c.StatusCode = int(statusCode.Int64)
	c.Error = errText.String
	return c, nil
}

func idsToInt64(ids []model.ID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime converts a time to sql.NullTime; the zero time is null.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// nullInt converts an int to sql.NullInt64; zero is null.
func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
