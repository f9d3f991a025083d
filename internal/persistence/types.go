package persistence

import "time"

type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"
)

type Trigger string

const (
	TriggerPoller Trigger = "poller"
	TriggerManual Trigger = "manual"
)

// SyncRecord is one journaled translation update attempt.
type SyncRecord struct {
	ID        int64         `json:"id"`
	Channel   string        `json:"channel"`
	SourceURL string        `json:"source_url"`
	Trigger   Trigger       `json:"trigger"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

type HistoryFilter struct {
	Channel string
	Limit   int
}

type Totals struct {
	Updated    int                  `json:"updated"`
	Failed     int                  `json:"failed"`
	ByChannel  map[string]int       `json:"by_channel"`
	LastUpdate map[string]time.Time `json:"last_update"`
}
