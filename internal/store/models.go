package store

import "time"

type Member struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Party             string     `json:"party"`
	State             string     `json:"state"`
	VotesWithPartyPct float64    `json:"votesWithPartyPct"`
	LastUpdated       *time.Time `json:"lastUpdated"`
}

// FullName joins first and last name.
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

type Bill struct {
	ID              string     `json:"id"`
	BillSlug        string     `json:"billSlug"`
	Title           string     `json:"title"`
	ShortTitle      *string    `json:"shortTitle"`
	Summary         *string    `json:"summary"`
	LatestAction    *string    `json:"latestAction"`
	VolatilityScore *float64   `json:"volatilityScore"`
	Topics          []string   `json:"topics"`
	LastUpdated     *time.Time `json:"lastUpdated"`
}

// DisplayTitle returns the short title when present, otherwise the title.
func (b Bill) DisplayTitle() string {
	if b.ShortTitle != nil && *b.ShortTitle != "" {
		return *b.ShortTitle
	}
	return b.Title
}

type Topic struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
}

type UserPreferences struct {
	ID                 int64     `json:"id"`
	SessionID          string    `json:"sessionId"`
	SelectedTopics     []string  `json:"selectedTopics"`
	CustomInterests    *string   `json:"customInterests"`
	VotePreference     *string   `json:"votePreference"`
	OnboardingComplete bool      `json:"onboardingComplete"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
