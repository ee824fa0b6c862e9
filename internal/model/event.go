package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a platform-assigned numeric identifier. MISP renders numeric IDs as
// JSON strings ("42"), so ID decodes from either a string or a number.
type ID int64

// UnmarshalJSON accepts "42", 42 and null (zero).
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric id %s: %w", data, err)
	}
	*id = ID(n)
	return nil
}

// EventRef is the minimal view of a MISP event returned by the event index.
type EventRef struct {
	ID       ID     `json:"id"`
	UUID     string `json:"uuid,omitempty"`
	OrgcUUID string `json:"orgc_uuid,omitempty"`
}

// EventQuery holds the filters sent to the event index.
type EventQuery struct {
	Published bool   `json:"-"`
	Minimal   bool   `json:"-"`
	DateFrom  string `json:"datefrom"`
	DateUntil string `json:"dateuntil"`
}

// MarshalJSON renders the boolean filters as 0/1, the form MISP expects.
func (q EventQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Published int    `json:"published"`
		Minimal   int    `json:"minimal"`
		DateFrom  string `json:"datefrom"`
		DateUntil string `json:"dateuntil"`
	}{
		Published: boolInt(q.Published),
		Minimal:   boolInt(q.Minimal),
		DateFrom:  q.DateFrom,
		DateUntil: q.DateUntil,
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
