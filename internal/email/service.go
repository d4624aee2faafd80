// Package email drafts constituent outreach email to a legislator, using a
// text-generation backend when one is configured and a fixed letter otherwise.
package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"swingvote/api/internal/analysis"
	"swingvote/api/internal/llm"
	"swingvote/api/internal/store"
)

const (
	IntentionYes = "YES"
	IntentionNo  = "NO"
)

// Draft sources.
const (
	SourceModel    = "model"
	SourceTemplate = "template"
)

const (
	temperature = 0.7
	maxTokens   = 800
)

// Input is everything needed to draft one email.
type Input struct {
	Senator         store.Member
	Bill            store.Bill
	VoteIntention   string
	CustomInterests string
}

// Draft is a drafted email.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Source  string `json:"source"`
}

// Service drafts outreach email.
type Service struct {
	generator llm.Generator
	logger    *zap.Logger
}

// NewService creates a drafting service. generator may be nil, in which case
// every draft uses the fixed letter.
func NewService(generator llm.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{generator: generator, logger: logger}
}

// IsConfigured reports whether a text-generation backend is available.
func (s *Service) IsConfigured() bool {
	return s.generator != nil
}

// Draft writes an email for in. Backend failures are logged and answered
// with the fixed letter; the returned error is only set if that letter
// cannot be rendered.
func (s *Service) Draft(ctx context.Context, in Input) (Draft, error) {
	if s.IsConfigured() {
		draft, err := s.generate(ctx, in)
		if err == nil {
			return draft, nil
		}
		s.logger.Warn("email generation failed, using template",
			zap.String("backend", s.generator.Name()),
			zap.String("senator_id", in.Senator.ID),
			zap.String("bill_id", in.Bill.ID),
			zap.Error(err),
		)
	}
	return FallbackDraft(in)
}

func (s *Service) generate(ctx context.Context, in Input) (Draft, error) {
	prompt, err := BuildPrompt(in)
	if err != nil {
		return Draft{}, err
	}
	completion, err := s.generator.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Draft{}, err
	}

	subject, body := ParseCompletion(completion)
	if body == "" {
		return Draft{}, fmt.Errorf("completion has no body")
	}
	if subject == "" {
		subject = "Regarding " + in.Bill.DisplayTitle()
	}
	return Draft{Subject: subject, Body: body, Source: SourceModel}, nil
}

// PartyLabel spells out a party code.
func PartyLabel(party string) string {
	switch party {
	case "D":
		return "Democrat"
	case "R":
		return "Republican"
	case "I":
		return "Independent"
	default:
		return party
	}
}

// LoyaltyDescription describes a loyalty percentage using the classifier's
// thresholds.
func LoyaltyDescription(votesWithPartyPct float64) string {
	switch analysis.StatusFor(votesWithPartyPct) {
	case analysis.StatusLoyalist:
		return "highly partisan"
	case analysis.StatusLeaning:
		return "moderately independent"
	default:
		return "notably independent and persuadable"
	}
}

// ParseCompletion splits generated text into subject and body. The subject is
// taken from the first line starting with "SUBJECT:" in any case; the body is
// everything else. subject is empty when no such line exists.
func ParseCompletion(text string) (subject, body string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= len("subject:") && strings.EqualFold(trimmed[:len("subject:")], "subject:") {
			subject = strings.TrimSpace(trimmed[len("subject:"):])
			rest := append(append([]string{}, lines[:i]...), lines[i+1:]...)
			return subject, strings.TrimSpace(strings.Join(rest, "\n"))
		}
	}
	return "", strings.TrimSpace(text)
}

type promptData struct {
	SenatorName     string
	PartyLabel      string
	State           string
	Loyalty         string
	LoyaltyPct      string
	BillTitle       string
	BillSummary     string
	VoteIntention   string
	CustomInterests string
}

// BuildPrompt renders the generation prompt for in.
func BuildPrompt(in Input) (string, error) {
	summary := in.Bill.Title
	if in.Bill.Summary != nil && strings.TrimSpace(*in.Bill.Summary) != "" {
		summary = *in.Bill.Summary
	}
	return renderTemplate(promptTemplate, promptData{
		SenatorName:     in.Senator.FullName(),
		PartyLabel:      PartyLabel(in.Senator.Party),
		State:           in.Senator.State,
		Loyalty:         LoyaltyDescription(in.Senator.VotesWithPartyPct),
		LoyaltyPct:      fmt.Sprintf("%.1f", in.Senator.VotesWithPartyPct),
		BillTitle:       in.Bill.Title,
		BillSummary:     summary,
		VoteIntention:   in.VoteIntention,
		CustomInterests: strings.TrimSpace(in.CustomInterests),
	})
}

type letterData struct {
	LastName      string
	State         string
	VoteIntention string
	BillTitle     string
	Supporting    bool
}

// FallbackDraft renders the fixed constituent letter.
func FallbackDraft(in Input) (Draft, error) {
	title := in.Bill.DisplayTitle()
	body, err := renderTemplate(letterTemplate, letterData{
		LastName:      in.Senator.LastName,
		State:         in.Senator.State,
		VoteIntention: in.VoteIntention,
		BillTitle:     title,
		Supporting:    in.VoteIntention == IntentionYes,
	})
	if err != nil {
		return Draft{}, fmt.Errorf("render letter template: %w", err)
	}
	return Draft{
		Subject: fmt.Sprintf("Urging Your %s Vote on %s", in.VoteIntention, title),
		Body:    body,
		Source:  SourceTemplate,
	}, nil
}

var (
	promptTemplate = template.Must(template.New("prompt").Parse(promptText))
	letterTemplate = template.Must(template.New("letter").Parse(letterText))
)

func renderTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

const systemPrompt = `You are an experienced civic advocacy writer. You write respectful, persuasive letters from constituents to their elected officials.`

const promptText = `Write a persuasive email from a constituent to Senator {{.SenatorName}} ({{.PartyLabel}}, {{.State}}).

About the senator: they are a {{.PartyLabel}} who is {{.Loyalty}}, voting with their party {{.LoyaltyPct}}% of the time.

The bill: {{.BillTitle}}
Summary: {{.BillSummary}}

The constituent wants the senator to vote {{.VoteIntention}} on this bill.
{{if .CustomInterests}}
The constituent's personal interests and concerns: {{.CustomInterests}}
{{end}}
Requirements:
- Respectful, personal and persuasive tone
- Between 200 and 300 words
- Refer to the senator's state and the people they represent
- Start with a line of the form "SUBJECT: <subject>", then a blank line, then the email body`

const letterText = `Dear Senator {{.LastName}},

As your constituent in {{.State}}, I am writing to urge you to vote {{.VoteIntention}} on the {{.BillTitle}}.

{{if .Supporting}}I believe this legislation would bring real benefits to families and communities across {{.State}}, and its passage reflects the priorities of the people you represent.{{else}}I have serious concerns about this legislation and the harm it could cause to families and communities across {{.State}}, and I do not believe it reflects the priorities of the people you represent.{{end}}

Your vote on this bill matters to me and to many of my neighbors. I ask that you weigh the views of the people of {{.State}} carefully when it comes before the Senate.

Thank you for your time and for your service. I look forward to learning how you intend to vote.

Sincerely,
A Concerned Constituent`
