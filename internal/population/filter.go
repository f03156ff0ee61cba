package population

import (
	"github.com/gwpop/gwbsim/internal/gw"
)

// FilterResult reports the outcome of the observability pre-filter.
type FilterResult struct {
	Records      []Record
	Unobservable int
}

// FilterObservable drops binaries that can never enter the observable
// frequency window: systems whose GW frequency starts below the lowest bin
// edge and whose evolution up to that edge takes longer than the age of the
// universe. Everything else is kept.
//
// lowestEdge is the lowest frequency-bin edge in Hz (GW frequency);
// ageMyr is the age of the universe.
func FilterObservable(records []Record, lowestEdge, ageMyr float64) FilterResult {
	res := FilterResult{Records: make([]Record, 0, len(records))}
	for _, rec := range records {
		if 2*rec.Nu0 < lowestEdge {
			tau, err := gw.TimeToEvolve(2*rec.Nu0, lowestEdge, rec.K)
			if err != nil || tau > ageMyr {
				res.Unobservable++
				continue
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res
}
