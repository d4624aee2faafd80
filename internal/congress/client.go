// Package congress fetches senators and recently introduced bills from a
// ProPublica-style congress API.
package congress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"swingvote/api/internal/store"
)

// ErrNoAPIKey is returned by every fetch when no API key is configured.
var ErrNoAPIKey = errors.New("congress API key not configured")

const DefaultBaseURL = "https://api.propublica.org/congress/v1"

type Config struct {
	APIKey   string
	BaseURL  string
	Congress int
	Timeout  time.Duration
}

type Client struct {
	apiKey     string
	baseURL    string
	congress   int
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Congress == 0 {
		config.Congress = 118
	}
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}
	return &Client{
		apiKey:   config.APIKey,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		congress: config.Congress,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// IsConfigured reports whether live fetches are possible.
func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

type memberRecord struct {
	ID                string   `json:"id"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	Party             string   `json:"party"`
	State             string   `json:"state"`
	VotesWithPartyPct *float64 `json:"votes_with_party_pct"`
}

type billRecord struct {
	BillID            string  `json:"bill_id"`
	BillSlug          string  `json:"bill_slug"`
	Title             string  `json:"title"`
	ShortTitle        *string `json:"short_title"`
	Summary           *string `json:"summary"`
	LatestMajorAction *string `json:"latest_major_action"`
}

type membersEnvelope struct {
	Results []struct {
		Members []memberRecord `json:"members"`
	} `json:"results"`
}

type billsEnvelope struct {
	Results []struct {
		Bills []billRecord `json:"bills"`
	} `json:"results"`
}

// FetchMembers returns the senators of the configured congress together with
// the raw response body.
func (c *Client) FetchMembers(ctx context.Context) ([]store.Member, []byte, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/%d/senate/members.json", c.congress))
	if err != nil {
		return nil, nil, err
	}
	var envelope membersEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode members: %w", err)
	}
	if len(envelope.Results) == 0 {
		return nil, nil, fmt.Errorf("decode members: empty results")
	}

	members := make([]store.Member, 0, len(envelope.Results[0].Members))
	for _, record := range envelope.Results[0].Members {
		if strings.TrimSpace(record.ID) == "" {
			continue
		}
		members = append(members, NormalizeMember(record.toMember()))
	}
	return members, raw, nil
}

// FetchBills returns recently introduced bills from both chambers together
// with the raw response body.
func (c *Client) FetchBills(ctx context.Context) ([]store.Bill, []byte, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/%d/both/bills/introduced.json", c.congress))
	if err != nil {
		return nil, nil, err
	}
	var envelope billsEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode bills: %w", err)
	}
	if len(envelope.Results) == 0 {
		return nil, nil, fmt.Errorf("decode bills: empty results")
	}

	bills := make([]store.Bill, 0, len(envelope.Results[0].Bills))
	for _, record := range envelope.Results[0].Bills {
		if strings.TrimSpace(record.BillID) == "" {
			continue
		}
		bills = append(bills, NormalizeBill(record.toBill()))
	}
	return bills, raw, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s failed with status %d", path, resp.StatusCode)
	}
	return body, nil
}

func (r memberRecord) toMember() store.Member {
	member := store.Member{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Party:     r.Party,
		State:     r.State,
	}
	if r.VotesWithPartyPct != nil {
		member.VotesWithPartyPct = *r.VotesWithPartyPct
	}
	return member
}

func (r billRecord) toBill() store.Bill {
	return store.Bill{
		ID:           r.BillID,
		BillSlug:     r.BillSlug,
		Title:        r.Title,
		ShortTitle:   r.ShortTitle,
		Summary:      r.Summary,
		LatestAction: r.LatestMajorAction,
	}
}

// NormalizeMember clamps the loyalty percentage to [0, 100].
func NormalizeMember(member store.Member) store.Member {
	switch {
	case member.VotesWithPartyPct < 0:
		member.VotesWithPartyPct = 0
	case member.VotesWithPartyPct > 100:
		member.VotesWithPartyPct = 100
	}
	return member
}

// NormalizeBill fills the ingest defaults: short title and summary fall back
// to the title, and a missing volatility score becomes 0.
func NormalizeBill(bill store.Bill) store.Bill {
	if bill.ShortTitle == nil || strings.TrimSpace(*bill.ShortTitle) == "" {
		title := bill.Title
		bill.ShortTitle = &title
	}
	if bill.Summary == nil || strings.TrimSpace(*bill.Summary) == "" {
		title := bill.Title
		bill.Summary = &title
	}
	if bill.VolatilityScore == nil {
		zero := 0.0
		bill.VolatilityScore = &zero
	}
	if bill.BillSlug == "" {
		bill.BillSlug = bill.ID
	}
	if bill.Topics == nil {
		bill.Topics = []string{}
	}
	return bill
}
