package review

import (
	"sort"

	"github.com/sells-group/force-pipeline/internal/model"
)

// Filter restricts which opportunities the cursor moves over.
type Filter string

const (
	FilterReady Filter = "ready"
	FilterSent  Filter = "sent"
	FilterAll   Filter = "all"
)

func (f Filter) matches(o model.Opportunity) bool {
	switch f {
	case FilterReady:
		return o.Status == model.StatusReady
	case FilterSent:
		return o.Status == model.StatusSent
	default:
		return true
	}
}

// sortQueue orders the working set for review: priority tier first
// (hot > high > medium > low), then numeric score descending. The sort
// is stable so ties keep their original fetch order.
func sortQueue(opps []model.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		ri, rj := opps[i].PriorityTier.Rank(), opps[j].PriorityTier.Rank()
		if ri != rj {
			return ri < rj
		}
		return opps[i].PriorityScore > opps[j].PriorityScore
	})
}
