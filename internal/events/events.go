// Package events publishes purge progress to an event bus so other systems
// can follow a run without scraping its output.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// Topics. Everything lives under TopicAll.
const (
	TopicAll = "misp.purge.>"

	TopicRunStarted       = "misp.purge.run.started"
	TopicChunkDeleted     = "misp.purge.chunk.deleted"
	TopicChunkFailed      = "misp.purge.chunk.failed"
	TopicBlocklistDeleted = "misp.purge.blocklist.deleted"
	TopicRunCompleted     = "misp.purge.run.completed"
	TopicRunAborted       = "misp.purge.run.aborted"
)

type RunStarted struct {
	RunID   string     `json:"run_id"`
	Mode    model.Mode `json:"mode"`
	First   string     `json:"first"`
	Last    string     `json:"last"`
	OrgUUID string     `json:"org_uuid,omitempty"`
	DryRun  bool       `json:"dry_run"`
	At      time.Time  `json:"at"`
}

// ChunkDone is sent on TopicChunkDeleted or TopicChunkFailed.
type ChunkDone struct {
	RunID string            `json:"run_id"`
	Chunk model.ChunkResult `json:"chunk"`
}

type BlocklistDeleted struct {
	RunID     string `json:"run_id"`
	EventUUID string `json:"event_uuid"`
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
}

// RunFinished is sent on TopicRunCompleted or TopicRunAborted.
type RunFinished struct {
	RunID      string         `json:"run_id"`
	Mode       model.Mode     `json:"mode"`
	Outcome    model.Outcome  `json:"outcome"`
	Candidates int            `json:"candidates"`
	Totals     model.Counters `json:"totals"`
	Error      string         `json:"error,omitempty"`
	At         time.Time      `json:"at"`
}

// ChunkTopic picks the topic for a finished chunk.
func ChunkTopic(c model.ChunkResult) string {
	if c.Counters.Failed > 0 {
		return TopicChunkFailed
	}
	return TopicChunkDeleted
}

// FinishTopic picks the topic for a finished run.
func FinishTopic(o model.Outcome) string {
	if o == model.OutcomeAborted {
		return TopicRunAborted
	}
	return TopicRunCompleted
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
