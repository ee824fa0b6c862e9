package model

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the layout of blocklist creation timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// BlocklistEntry prevents re-ingestion of an event UUID.
type BlocklistEntry struct {
	EventUUID string `json:"event_uuid"`
	Created   string `json:"created"`
	Comment   string `json:"comment,omitempty"`
}

// CreatedAt parses Created as a naive timestamp. No timezone conversion is
// applied; the result is expressed in UTC only so that comparisons with
// DateWindow bounds line up.
func (e BlocklistEntry) CreatedAt() (time.Time, error) {
	return time.Parse(TimestampLayout, e.Created)
}

// UnmarshalJSON accepts both a bare entry and the {"EventBlocklist": {...}}
// envelope.
func (e *BlocklistEntry) UnmarshalJSON(data []byte) error {
	type plain BlocklistEntry
	var env struct {
		EventBlocklist *plain `json:"EventBlocklist"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.EventBlocklist != nil {
		*e = BlocklistEntry(*env.EventBlocklist)
		return nil
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = BlocklistEntry(p)
	return nil
}
