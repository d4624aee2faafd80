package congress

import "swingvote/api/internal/store"

// SeedMembers is used in place of live senators when the provider is
// unavailable.
func SeedMembers() []store.Member {
	return []store.Member{
		{ID: "M001183", FirstName: "Joe", LastName: "Manchin", Party: "D", State: "WV", VotesWithPartyPct: 88.5},
		{ID: "S001191", FirstName: "Kyrsten", LastName: "Sinema", Party: "I", State: "AZ", VotesWithPartyPct: 92.1},
		{ID: "L001234", FirstName: "Loyal", LastName: "Republican", Party: "R", State: "TX", VotesWithPartyPct: 99.0},
		{ID: "L001235", FirstName: "Loyal", LastName: "Democrat", Party: "D", State: "CA", VotesWithPartyPct: 98.0},
		{ID: "S001236", FirstName: "Susan", LastName: "Collins", Party: "R", State: "ME", VotesWithPartyPct: 75.0},
	}
}

// SeedBills is used in place of live bills when the provider is unavailable.
func SeedBills() []store.Bill {
	return []store.Bill{
		NormalizeBill(store.Bill{
			ID:           "hr1",
			BillSlug:     "hr1",
			Title:        "For the People Act",
			ShortTitle:   ptr("For the People Act"),
			Summary:      ptr("To expand Americans' access to the ballot box, reduce the influence of big money in politics, strengthen ethics rules for public servants, and implement other anti-corruption measures for the purpose of fortifying our democracy, and for other purposes."),
			LatestAction: ptr("Introduced in House"),
			Topics:       []string{"Voting Rights", "Civil Rights"},
		}),
		NormalizeBill(store.Bill{
			ID:           "s1",
			BillSlug:     "s1",
			Title:        "Wait for it Act",
			ShortTitle:   ptr("Wait for it Act"),
			Summary:      ptr("A bill to wait for things to happen."),
			LatestAction: ptr("Introduced in Senate"),
		}),
	}
}

// Topics is the fixed issue catalogue offered during onboarding.
func Topics() []store.Topic {
	return []store.Topic{
		{Name: "Healthcare", Description: "Access to affordable care, insurance coverage and prescription costs", Icon: "heart", Category: "Social"},
		{Name: "Education", Description: "Public schools, student debt and early childhood programs", Icon: "graduation-cap", Category: "Social"},
		{Name: "Climate & Environment", Description: "Clean energy, conservation and emissions policy", Icon: "leaf", Category: "Environment"},
		{Name: "Economy & Jobs", Description: "Wages, small business and economic growth", Icon: "trending-up", Category: "Economic"},
		{Name: "Foreign Policy", Description: "Diplomacy, trade agreements and international aid", Icon: "globe", Category: "Security"},
		{Name: "National Defense", Description: "Military readiness, veterans and homeland security", Icon: "shield", Category: "Security"},
		{Name: "Civil Rights", Description: "Equal protection, discrimination and civil liberties", Icon: "scale", Category: "Social"},
		{Name: "Infrastructure", Description: "Roads, bridges, transit and broadband", Icon: "building", Category: "Economic"},
		{Name: "Technology & Privacy", Description: "Data privacy, AI regulation and online safety", Icon: "cpu", Category: "Technology"},
		{Name: "Criminal Justice", Description: "Policing, sentencing and court reform", Icon: "gavel", Category: "Social"},
		{Name: "Voting Rights", Description: "Ballot access, election security and campaign finance", Icon: "target", Category: "Social"},
		{Name: "Agriculture", Description: "Farm policy, food security and rural communities", Icon: "wheat", Category: "Environment"},
	}
}

func ptr(value string) *string { return &value }
