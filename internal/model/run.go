package model

import "time"

// Mode selects how candidates are found.
type Mode string

const (
	ModeEvents    Mode = "events"
	ModeBlocklist Mode = "blocklist"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSimulated Outcome = "simulated"
	OutcomeAborted   Outcome = "aborted"
)

// Counters accumulates per-run or per-chunk success and failure counts.
type Counters struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Add returns the element-wise sum of c and o.
func (c Counters) Add(o Counters) Counters {
	return Counters{Success: c.Success + o.Success, Failed: c.Failed + o.Failed}
}

// ChunkResult records the outcome of one bulk-delete request.
type ChunkResult struct {
	Index      int       `json:"index"`
	IDs        []ID      `json:"ids"`
	Counters   Counters  `json:"counters"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Run is the record of a single purge invocation.
type Run struct {
	ID         string        `json:"id"`
	Mode       Mode          `json:"mode"`
	First      string        `json:"first"`
	Last       string        `json:"last"`
	OrgUUID    string        `json:"org_uuid,omitempty"`
	DryRun     bool          `json:"dry_run"`
	Candidates int           `json:"candidates"`
	Totals     Counters      `json:"totals"`
	Chunks     []ChunkResult `json:"chunks,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
