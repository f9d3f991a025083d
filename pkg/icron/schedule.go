// Package icron inspects cron expressions.
package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type TriggerInfo struct {
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last"`
	Expression string    `json:"expression"`

	TimeSinceLast time.Duration `json:"time_since_last"`
	TimeUntilNext time.Duration `json:"time_until_next"`
}

// maxLookback bounds the search for the previous trigger.
const maxLookback = 366 * 24 * time.Hour

// GetTriggerInfo reports the previous and next activation of a standard
// five-field expression around refTime.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	// widen the window until it contains at least one activation, then walk
	// forward to the last one not after refTime
	for step := time.Hour; step <= maxLookback; step *= 2 {
		t := schedule.Next(refTime.Add(-step))
		if t.After(refTime) {
			continue
		}
		for {
			n := schedule.Next(t)
			if n.After(refTime) {
				break
			}
			t = n
		}
		info.Last = t
		info.TimeSinceLast = refTime.Sub(t)
		break
	}

	return info, nil
}
