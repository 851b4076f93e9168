package review

import "time"

// Progress is session-local accounting, reset at session start and
// never persisted.
type Progress struct {
	ProcessedCount int
	TotalCount     int

	actionTimestamps []time.Time
}

func (p *Progress) record(now time.Time) {
	p.ProcessedCount++
	p.actionTimestamps = append(p.actionTimestamps, now)
}

// AverageActionTime is the mean interval between consecutive processed
// actions. Zero until at least two actions have been recorded.
func (p *Progress) AverageActionTime() time.Duration {
	n := len(p.actionTimestamps)
	if n < 2 {
		return 0
	}
	total := p.actionTimestamps[n-1].Sub(p.actionTimestamps[0])
	return total / time.Duration(n-1)
}
