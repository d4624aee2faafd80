// Package analysis classifies legislators by party loyalty and tallies a
// whip count for a bill.
package analysis

import "swingvote/api/internal/store"

type Status string

const (
	StatusLoyalist Status = "Loyalist"
	StatusLeaning  Status = "Leaning"
	StatusSwing    Status = "Swing"
)

// Loyalty thresholds on votesWithPartyPct. Above LoyalistAbove is Loyalist,
// LeaningFloor..LoyalistAbove inclusive is Leaning, below LeaningFloor is Swing.
const (
	LoyalistAbove = 95.0
	LeaningFloor  = 80.0
)

const (
	StrategyHighValue   = "HIGH VALUE. Requires direct donor outreach."
	StrategyRepublican  = "Angle: Economic Liberty & District Jobs. Contact via Chamber of Commerce."
	StrategyDemocrat    = "Angle: Social Protection & Union Support. Contact via Local Labor Leaders."
	StrategyIndependent = "Angle: Independence & Bipartisanship. Focus on specific bill merits."
	StrategyDefault     = "Maintain standard outreach."
	StrategyLoyalist    = "Loyalist. Focus resources elsewhere unless key committee member."
)

var highValueStates = map[string]struct{}{
	"WV": {},
	"AZ": {},
}

// StatusFor maps a party-loyalty percentage onto a Status.
func StatusFor(votesWithPartyPct float64) Status {
	switch {
	case votesWithPartyPct > LoyalistAbove:
		return StatusLoyalist
	case votesWithPartyPct >= LeaningFloor:
		return StatusLeaning
	default:
		return StatusSwing
	}
}

// Classify returns the member's status and recommended outreach strategy.
// The state check runs before the party check.
func Classify(member store.Member) (Status, string) {
	status := StatusFor(member.VotesWithPartyPct)
	if status == StatusLoyalist {
		return status, StrategyLoyalist
	}

	if _, ok := highValueStates[member.State]; ok {
		return status, StrategyHighValue
	}
	switch member.Party {
	case "R":
		return status, StrategyRepublican
	case "D":
		return status, StrategyDemocrat
	case "I":
		return status, StrategyIndependent
	default:
		return status, StrategyDefault
	}
}
