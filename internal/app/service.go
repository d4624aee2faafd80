package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"swingvote/api/internal/analysis"
	"swingvote/api/internal/archive"
	"swingvote/api/internal/congress"
	"swingvote/api/internal/email"
	"swingvote/api/internal/search"
	"swingvote/api/internal/session"
	"swingvote/api/internal/store"
)

type dataStore interface {
	ListMembers(context.Context) ([]store.Member, error)
	GetMember(context.Context, string) (store.Member, error)
	UpsertMember(context.Context, store.Member) error
	ListBills(context.Context) ([]store.Bill, error)
	GetBill(context.Context, string) (store.Bill, error)
	UpsertBill(context.Context, store.Bill) error
	ListTopics(context.Context) ([]store.Topic, error)
	UpsertTopic(context.Context, store.Topic) error
	GetPreferences(context.Context, string) (store.UserPreferences, error)
	SavePreferences(context.Context, store.UserPreferences) (store.UserPreferences, error)
	Ping(ctx context.Context) error
}

type congressSource interface {
	FetchMembers(context.Context) ([]store.Member, []byte, error)
	FetchBills(context.Context) ([]store.Bill, []byte, error)
}

type preferencesCache interface {
	SavePreferences(context.Context, store.UserPreferences) error
	LookupPreferences(context.Context, string) (store.UserPreferences, error)
	RevokePreferences(context.Context, string) error
}

type payloadArchive interface {
	Put(context.Context, string, []byte) (string, error)
}

type billSearch interface {
	Search(context.Context, search.Query) search.Response
	IndexBills([]store.Bill)
}

type emailDrafter interface {
	Draft(context.Context, email.Input) (email.Draft, error)
}

// Data sources reported by Sync.
const (
	SourceProvider = "provider"
	SourceSeed     = "seed"
)

type SyncReport struct {
	Members       int    `json:"members"`
	MembersSource string `json:"membersSource"`
	Bills         int    `json:"bills"`
	BillsSource   string `json:"billsSource"`
}

type PreferencesInput struct {
	SelectedTopics     *[]string `json:"selectedTopics"`
	CustomInterests    *string   `json:"customInterests"`
	VotePreference     *string   `json:"votePreference"`
	OnboardingComplete *bool     `json:"onboardingComplete"`
}

type DraftEmailInput struct {
	SenatorID     string `json:"senatorId"`
	BillID        string `json:"billId"`
	VoteIntention string `json:"voteIntention"`
}

type EmailDraftResult struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	SenatorName string `json:"senatorName"`
	BillTitle   string `json:"billTitle"`
	Source      string `json:"source"`
}

// Dependencies are the optional collaborators of Service. Nil fields disable
// the matching feature.
type Dependencies struct {
	Congress *congress.Client
	Drafter  *email.Service
	Search   *search.Service
	Cache    *session.RedisStore
	Archive  *archive.Store
	Logger   *zap.Logger
}

type Service struct {
	store    dataStore
	congress congressSource
	drafter  emailDrafter
	search   billSearch
	cache    preferencesCache
	archive  payloadArchive
	logger   *zap.Logger
}

func New(dataStore *store.PostgresStore, deps Dependencies) *Service {
	s := &Service{
		store:  dataStore,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if deps.Congress != nil {
		s.congress = deps.Congress
	}
	if deps.Drafter != nil {
		s.drafter = deps.Drafter
	} else {
		s.drafter = email.NewService(nil, s.logger)
	}
	if deps.Search != nil {
		s.search = deps.Search
	}
	if deps.Cache != nil {
		s.cache = deps.Cache
	}
	if deps.Archive != nil {
		s.archive = deps.Archive
	}
	return s
}

// Bootstrap seeds the topic catalogue. It is safe to run on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, topic := range congress.Topics() {
		if err := s.store.UpsertTopic(ctx, topic); err != nil {
			return fmt.Errorf("seed topics: %w", err)
		}
	}
	return nil
}

// Sync refreshes senators and bills from the provider. Members and bills fall
// back to seed records independently when the provider is unavailable; only
// store failures are returned.
func (s *Service) Sync(ctx context.Context) (SyncReport, error) {
	report := SyncReport{MembersSource: SourceSeed, BillsSource: SourceSeed}

	members := congress.SeedMembers()
	if s.congress != nil {
		fetched, raw, err := s.congress.FetchMembers(ctx)
		if err != nil {
			s.logger.Warn("member fetch failed, using seed data", zap.Error(err))
		} else {
			members = fetched
			report.MembersSource = SourceProvider
			s.archivePayload(ctx, "members", raw)
		}
	}
	for _, member := range members {
		if err := s.store.UpsertMember(ctx, congress.NormalizeMember(member)); err != nil {
			return report, err
		}
		report.Members++
	}

	bills := congress.SeedBills()
	if s.congress != nil {
		fetched, raw, err := s.congress.FetchBills(ctx)
		if err != nil {
			s.logger.Warn("bill fetch failed, using seed data", zap.Error(err))
		} else {
			bills = fetched
			report.BillsSource = SourceProvider
			s.archivePayload(ctx, "bills", raw)
		}
	}
	for i, bill := range bills {
		bills[i] = congress.NormalizeBill(bill)
		if err := s.store.UpsertBill(ctx, bills[i]); err != nil {
			return report, err
		}
		report.Bills++
	}

	if s.search != nil {
		s.search.IndexBills(bills)
	}

	s.logger.Info("sync complete",
		zap.Int("members", report.Members),
		zap.String("members_source", report.MembersSource),
		zap.Int("bills", report.Bills),
		zap.String("bills_source", report.BillsSource),
	)
	return report, nil
}

// StartSync runs Sync in the background. The returned channel closes once it
// has finished, so callers can wait before releasing the store.
func (s *Service) StartSync(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Warn("background sync interrupted", zap.Error(err))
				return
			}
			s.logger.Error("background sync failed", zap.Error(err))
		}
	}()
	return done
}

func (s *Service) archivePayload(ctx context.Context, collection string, payload []byte) {
	if s.archive == nil || len(payload) == 0 {
		return
	}
	key, err := s.archive.Put(ctx, collection, payload)
	if err != nil {
		s.logger.Warn("archive payload failed", zap.String("collection", collection), zap.Error(err))
		return
	}
	s.logger.Debug("archived payload", zap.String("collection", collection), zap.String("key", key))
}

func (s *Service) ListBills(ctx context.Context) ([]store.Bill, error) {
	return s.store.ListBills(ctx)
}

func (s *Service) GetBill(ctx context.Context, billID string) (store.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Bill{}, notFound("Bill not found")
	}
	if err != nil {
		return store.Bill{}, err
	}
	return bill, nil
}

// AnalyzeBill classifies every senator and tallies the whip count for a bill.
func (s *Service) AnalyzeBill(ctx context.Context, billID string) (analysis.BillAnalysis, error) {
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return analysis.BillAnalysis{}, err
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return analysis.BillAnalysis{}, err
	}
	return analysis.Analyze(bill, members), nil
}

func (s *Service) SearchBills(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []store.Bill{}, Total: 0, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) ListTopics(ctx context.Context) ([]store.Topic, error) {
	return s.store.ListTopics(ctx)
}

// GetPreferences returns nil when nothing was saved for sessionID.
func (s *Service) GetPreferences(ctx context.Context, sessionID string) (*store.UserPreferences, error) {
	if s.cache != nil {
		prefs, err := s.cache.LookupPreferences(ctx, sessionID)
		if err == nil {
			return &prefs, nil
		}
		if !errors.Is(err, session.ErrCacheMiss) {
			s.logger.Warn("preferences cache lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	prefs, err := s.store.GetPreferences(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.cachePreferences(ctx, prefs)
	return &prefs, nil
}

// SavePreferences validates input and upserts it under sessionID.
func (s *Service) SavePreferences(ctx context.Context, sessionID string, input PreferencesInput) (store.UserPreferences, error) {
	if err := validatePreferences(input); err != nil {
		return store.UserPreferences{}, err
	}

	prefs := store.UserPreferences{
		SessionID:       sessionID,
		SelectedTopics:  *input.SelectedTopics,
		CustomInterests: input.CustomInterests,
		VotePreference:  input.VotePreference,
	}
	if input.OnboardingComplete != nil {
		prefs.OnboardingComplete = *input.OnboardingComplete
	}

	saved, err := s.store.SavePreferences(ctx, prefs)
	if err != nil {
		return store.UserPreferences{}, err
	}
	s.cachePreferences(ctx, saved)
	return saved, nil
}

func (s *Service) cachePreferences(ctx context.Context, prefs store.UserPreferences) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SavePreferences(ctx, prefs); err != nil {
		s.logger.Warn("preferences cache write failed", zap.String("session_id", prefs.SessionID), zap.Error(err))
		// A stale entry would shadow the row just written.
		if err := s.cache.RevokePreferences(ctx, prefs.SessionID); err != nil {
			s.logger.Warn("preferences cache revoke failed", zap.String("session_id", prefs.SessionID), zap.Error(err))
		}
	}
}

func validatePreferences(input PreferencesInput) error {
	if input.SelectedTopics == nil {
		return validationError("selectedTopics is required")
	}
	for i, topic := range *input.SelectedTopics {
		if strings.TrimSpace(topic) == "" {
			return validationError(fmt.Sprintf("selectedTopics[%d] must be a non-empty string", i))
		}
	}
	return nil
}

// DraftEmail resolves the senator and bill, then drafts an email using the
// custom interests saved for sessionID. Generation failures never surface;
// the drafter falls back to its fixed letter.
func (s *Service) DraftEmail(ctx context.Context, sessionID string, input DraftEmailInput) (EmailDraftResult, error) {
	if err := validateDraftEmail(input); err != nil {
		return EmailDraftResult{}, err
	}

	senator, err := s.store.GetMember(ctx, input.SenatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return EmailDraftResult{}, notFound("Senator not found")
	}
	if err != nil {
		return EmailDraftResult{}, err
	}
	bill, err := s.store.GetBill(ctx, input.BillID)
	if errors.Is(err, sql.ErrNoRows) {
		return EmailDraftResult{}, notFound("Bill not found")
	}
	if err != nil {
		return EmailDraftResult{}, err
	}

	customInterests := ""
	prefs, err := s.GetPreferences(ctx, sessionID)
	if err != nil {
		s.logger.Warn("preferences lookup failed, drafting without interests", zap.String("session_id", sessionID), zap.Error(err))
	} else if prefs != nil && prefs.CustomInterests != nil {
		customInterests = *prefs.CustomInterests
	}

	draft, err := s.drafter.Draft(ctx, email.Input{
		Senator:         senator,
		Bill:            bill,
		VoteIntention:   input.VoteIntention,
		CustomInterests: customInterests,
	})
	if err != nil {
		return EmailDraftResult{}, err
	}
	return EmailDraftResult{
		Subject:     draft.Subject,
		Body:        draft.Body,
		SenatorName: senator.FullName(),
		BillTitle:   bill.Title,
		Source:      draft.Source,
	}, nil
}

func validateDraftEmail(input DraftEmailInput) error {
	if strings.TrimSpace(input.SenatorID) == "" {
		return validationError("senatorId is required")
	}
	if strings.TrimSpace(input.BillID) == "" {
		return validationError("billId is required")
	}
	if input.VoteIntention != email.IntentionYes && input.VoteIntention != email.IntentionNo {
		return validationError("voteIntention must be YES or NO")
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
