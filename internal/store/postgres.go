package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const memberColumns = `id, first_name, last_name, party, state, votes_with_party_pct, last_updated`

func (s *PostgresStore) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		item, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

// GetMember returns sql.ErrNoRows when the member does not exist.
func (s *PostgresStore) GetMember(ctx context.Context, memberID string) (Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, memberID)
	return scanMember(row)
}

func (s *PostgresStore) UpsertMember(ctx context.Context, item Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, first_name, last_name, party, state, votes_with_party_pct)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			first_name=EXCLUDED.first_name,
			last_name=EXCLUDED.last_name,
			party=EXCLUDED.party,
			state=EXCLUDED.state,
			votes_with_party_pct=EXCLUDED.votes_with_party_pct,
			last_updated=NOW()
	`, item.ID, item.FirstName, item.LastName, item.Party, item.State, item.VotesWithPartyPct)
	if err != nil {
		return fmt.Errorf("upsert member %s: %w", item.ID, err)
	}
	return nil
}

const billColumns = `id, bill_slug, title, short_title, summary, latest_action, volatility_score, topics::text, last_updated`

func (s *PostgresStore) ListBills(ctx context.Context) ([]Bill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY last_updated DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	items := make([]Bill, 0)
	for rows.Next() {
		item, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return items, nil
}

// GetBill returns sql.ErrNoRows when the bill does not exist.
func (s *PostgresStore) GetBill(ctx context.Context, billID string) (Bill, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id=$1`, billID)
	return scanBill(row)
}

func (s *PostgresStore) UpsertBill(ctx context.Context, item Bill) error {
	topics, err := encodeStrings(item.Topics)
	if err != nil {
		return fmt.Errorf("encode bill topics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bills (id, bill_slug, title, short_title, summary, latest_action, volatility_score, topics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			bill_slug=EXCLUDED.bill_slug,
			title=EXCLUDED.title,
			short_title=EXCLUDED.short_title,
			summary=EXCLUDED.summary,
			latest_action=EXCLUDED.latest_action,
			volatility_score=EXCLUDED.volatility_score,
			topics=EXCLUDED.topics,
			last_updated=NOW()
	`, item.ID, item.BillSlug, item.Title, item.ShortTitle, item.Summary, item.LatestAction, item.VolatilityScore, topics)
	if err != nil {
		return fmt.Errorf("upsert bill %s: %w", item.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListTopics(ctx context.Context) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), COALESCE(icon, ''), COALESCE(category, '')
		FROM topics
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	items := make([]Topic, 0)
	for rows.Next() {
		var item Topic
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Icon, &item.Category); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertTopic(ctx context.Context, item Topic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (name, description, icon, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			description=EXCLUDED.description,
			icon=EXCLUDED.icon,
			category=EXCLUDED.category
	`, item.Name, item.Description, item.Icon, item.Category)
	if err != nil {
		return fmt.Errorf("upsert topic %s: %w", item.Name, err)
	}
	return nil
}

const preferencesColumns = `id, session_id, selected_topics::text, custom_interests, vote_preference, onboarding_complete, created_at, updated_at`

// GetPreferences returns sql.ErrNoRows when nothing was saved for the session.
func (s *PostgresStore) GetPreferences(ctx context.Context, sessionID string) (UserPreferences, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+preferencesColumns+` FROM user_preferences WHERE session_id=$1`, sessionID)
	return scanPreferences(row)
}

// SavePreferences inserts or replaces the preferences row keyed by session id
// and returns the stored row.
func (s *PostgresStore) SavePreferences(ctx context.Context, prefs UserPreferences) (UserPreferences, error) {
	topics, err := encodeStrings(prefs.SelectedTopics)
	if err != nil {
		return UserPreferences{}, fmt.Errorf("encode selected topics: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_preferences (session_id, selected_topics, custom_interests, vote_preference, onboarding_complete)
		VALUES ($1, $2::jsonb, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			selected_topics=EXCLUDED.selected_topics,
			custom_interests=EXCLUDED.custom_interests,
			vote_preference=EXCLUDED.vote_preference,
			onboarding_complete=EXCLUDED.onboarding_complete,
			updated_at=NOW()
		RETURNING `+preferencesColumns,
		prefs.SessionID, topics, prefs.CustomInterests, prefs.VotePreference, prefs.OnboardingComplete)
	saved, err := scanPreferences(row)
	if err != nil {
		return UserPreferences{}, fmt.Errorf("save preferences: %w", err)
	}
	return saved, nil
}

// SearchBills is a case-insensitive substring match over the bill's text
// columns, used when no search index is available.
func (s *PostgresStore) SearchBills(ctx context.Context, query string, limit, offset int) ([]Bill, int, error) {
	pattern := "%" + escapeLike(query) + "%"
	const where = `
		WHERE title ILIKE $1
			OR COALESCE(short_title, '') ILIKE $1
			OR COALESCE(summary, '') ILIKE $1
			OR topics::text ILIKE $1
	`

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bills`+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bill matches: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills`+where+` ORDER BY last_updated DESC, id LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search bills: %w", err)
	}
	defer rows.Close()

	items := make([]Bill, 0)
	for rows.Next() {
		item, err := scanBill(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan bill: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bill matches: %w", err)
	}
	return items, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (Member, error) {
	var item Member
	var updated sql.NullTime
	if err := row.Scan(&item.ID, &item.FirstName, &item.LastName, &item.Party, &item.State, &item.VotesWithPartyPct, &updated); err != nil {
		return Member{}, err
	}
	if updated.Valid {
		item.LastUpdated = &updated.Time
	}
	return item, nil
}

func scanBill(row rowScanner) (Bill, error) {
	var (
		item         Bill
		shortTitle   sql.NullString
		summary      sql.NullString
		latestAction sql.NullString
		volatility   sql.NullFloat64
		topics       string
		updated      sql.NullTime
	)
	if err := row.Scan(&item.ID, &item.BillSlug, &item.Title, &shortTitle, &summary, &latestAction, &volatility, &topics, &updated); err != nil {
		return Bill{}, err
	}
	item.ShortTitle = nullString(shortTitle)
	item.Summary = nullString(summary)
	item.LatestAction = nullString(latestAction)
	if volatility.Valid {
		item.VolatilityScore = &volatility.Float64
	}
	if updated.Valid {
		item.LastUpdated = &updated.Time
	}
	decoded, err := decodeStrings(topics)
	if err != nil {
		return Bill{}, fmt.Errorf("decode topics for bill %s: %w", item.ID, err)
	}
	item.Topics = decoded
	return item, nil
}

func scanPreferences(row rowScanner) (UserPreferences, error) {
	var (
		item            UserPreferences
		topics          string
		customInterests sql.NullString
		votePreference  sql.NullString
	)
	if err := row.Scan(&item.ID, &item.SessionID, &topics, &customInterests, &votePreference, &item.OnboardingComplete, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return UserPreferences{}, err
	}
	item.CustomInterests = nullString(customInterests)
	item.VotePreference = nullString(votePreference)
	decoded, err := decodeStrings(topics)
	if err != nil {
		return UserPreferences{}, fmt.Errorf("decode selected topics: %w", err)
	}
	item.SelectedTopics = decoded
	return item, nil
}

func nullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeStrings(raw string) ([]string, error) {
	values := make([]string, 0)
	if raw == "" || raw == "null" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
