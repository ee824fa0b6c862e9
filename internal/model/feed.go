package model

import "encoding/json"

// Feed is a configured MISP feed. A feed with EventID > 0 is pinned to a
// fixed event, which must never be purged.
type Feed struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	EventID ID     `json:"event_id"`
}

// Pinned reports whether the feed is pinned to a fixed event.
func (f Feed) Pinned() bool {
	return f.EventID > 0
}

// UnmarshalJSON accepts both a bare feed object and the {"Feed": {...}}
// envelope the MISP REST API returns.
func (f *Feed) UnmarshalJSON(data []byte) error {
	type plain Feed
	var env struct {
		Feed *plain `json:"Feed"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Feed != nil {
		*f = Feed(*env.Feed)
		return nil
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Feed(p)
	return nil
}
