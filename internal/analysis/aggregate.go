package analysis

import "swingvote/api/internal/store"

type SenatorAnalysis struct {
	Member   store.Member `json:"member"`
	Status   Status       `json:"status"`
	Strategy string       `json:"strategy"`
}

type WhipCount struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Swing int `json:"swing"`
}

// Total is the number of members counted.
func (w WhipCount) Total() int {
	return w.Yes + w.No + w.Swing
}

type BillAnalysis struct {
	Bill      store.Bill        `json:"bill"`
	WhipCount WhipCount         `json:"whipCount"`
	Senators  []SenatorAnalysis `json:"senators"`
}

// Analyze classifies every member and tallies the whip count for bill.
//
// The tally does not use bill-specific positions: Swing members count as
// swing, every other Democrat as yes and everyone else as no.
func Analyze(bill store.Bill, members []store.Member) BillAnalysis {
	result := BillAnalysis{
		Bill:     bill,
		Senators: make([]SenatorAnalysis, 0, len(members)),
	}
	for _, member := range members {
		status, strategy := Classify(member)
		result.Senators = append(result.Senators, SenatorAnalysis{
			Member:   member,
			Status:   status,
			Strategy: strategy,
		})

		switch {
		case status == StatusSwing:
			result.WhipCount.Swing++
		case member.Party == "D":
			result.WhipCount.Yes++
		default:
			result.WhipCount.No++
		}
	}
	return result
}
