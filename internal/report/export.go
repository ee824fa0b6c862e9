package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

const formatVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string         `json:"version"`
	Type       string         `json:"type"`
	RunID      string         `json:"run_id"`
	Mode       model.Mode     `json:"mode"`
	First      string         `json:"first"`
	Last       string         `json:"last"`
	OrgUUID    string         `json:"org_uuid,omitempty"`
	DryRun     bool           `json:"dry_run"`
	Outcome    model.Outcome  `json:"outcome"`
	Error      string         `json:"error,omitempty"`
	Candidates int            `json:"candidates"`
	ChunkCount int            `json:"chunk_count"`
	Totals     model.Counters `json:"totals"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes run as JSONL: a header line followed by one "chunk"
// line per delete request, in the order the chunks were sent.
func ExportJSONL(run *model.Run, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    formatVersion,
		Type:       "header",
		RunID:      run.ID,
		Mode:       run.Mode,
		First:      run.First,
		Last:       run.Last,
		OrgUUID:    run.OrgUUID,
		DryRun:     run.DryRun,
		Outcome:    run.Outcome,
		Error:      run.Error,
		Candidates: run.Candidates,
		ChunkCount: len(run.Chunks),
		Totals:     run.Totals,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, c := range run.Chunks {
		if err := enc.Encode(record{Type: "chunk", Data: c}); err != nil {
			return fmt.Errorf("encode chunk %d: %w", c.Index, err)
		}
	}
	return nil
}
