package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	niche      TEXT NOT NULL,
	city       TEXT NOT NULL,
	lead_limit INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'created',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id                 TEXT PRIMARY KEY,
	campaign_id        TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	business_name      TEXT NOT NULL,
	website_url        TEXT,
	phone              TEXT,
	email              TEXT,
	address            TEXT,
	source_url         TEXT NOT NULL DEFAULT '',
	demo_url           TEXT,
	hero_image_url     TEXT,
	service_image_urls TEXT NOT NULL DEFAULT '[]',
	status             TEXT NOT NULL DEFAULT 'new',
	do_not_contact     INTEGER NOT NULL DEFAULT 0,
	email_sent_count   INTEGER NOT NULL DEFAULT 0,
	call_attempts      INTEGER NOT NULL DEFAULT 0,
	interested         INTEGER NOT NULL DEFAULT 0,
	booked             INTEGER NOT NULL DEFAULT 0,
	last_error         TEXT,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	lead_id     TEXT REFERENCES leads(id) ON DELETE SET NULL,
	type        TEXT NOT NULL,
	metadata    TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key          TEXT PRIMARY KEY,
	stage        TEXT NOT NULL,
	campaign_id  TEXT NOT NULL,
	lead_id      TEXT,
	result       TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_campaign_website
	ON leads(campaign_id, website_url) WHERE website_url IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_events_campaign ON events(campaign_id);
CREATE INDEX IF NOT EXISTS idx_events_lead ON events(lead_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_idem_stage ON idempotency_keys(stage);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Campaigns

func (s *SQLiteStore) CreateCampaign(ctx context.Context, niche, city string, limit int) (*model.Campaign, error) {
	c := &model.Campaign{
		ID:        uuid.New().String(),
		Niche:     niche,
		City:      city,
		Limit:     limit,
		Status:    model.CampaignStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, niche, city, lead_limit, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Niche, c.City, c.Limit, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert campaign")
	}
	return c, nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, niche, city, lead_limit, status, created_at, updated_at
		 FROM campaigns WHERE id = ?`, id,
	)
	return scanCampaign(row)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	query := `SELECT id, niche, city, lead_limit, status, created_at, updated_at
		FROM campaigns WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, orDefault(filter.Limit, 100))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	cur, err := s.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.CanTransitionTo(status) {
		return eris.Wrapf(ErrIllegalTransition, "campaign %s: %s -> %s", id, cur.Status, status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), time.Now().UTC(), id, string(cur.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign status %s", id)
	}
	return checkRowsAffected(res, "campaign", id)
}

func (s *SQLiteStore) DeleteCampaign(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete campaign %s", id)
	}
	return checkRowsAffected(res, "campaign", id)
}

// Leads

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error) {
	if lead.WebsiteURL != nil {
		row := s.db.QueryRowContext(ctx,
			`SELECT id FROM leads WHERE campaign_id = ? AND website_url = ?`,
			lead.CampaignID, *lead.WebsiteURL,
		)
		var existingID string
		err := row.Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			// fall through to insert
		case err != nil:
			return nil, false, eris.Wrap(err, "sqlite: lookup lead by website")
		default:
			return s.refreshLead(ctx, existingID, lead)
		}
	}

	stored, err := s.insertLead(ctx, lead)
	if err != nil {
		// The partial unique index is the backstop against concurrent
		// inserts of the same site; lose the race gracefully.
		if lead.WebsiteURL != nil && isUniqueViolation(err) {
			row := s.db.QueryRowContext(ctx,
				`SELECT id FROM leads WHERE campaign_id = ? AND website_url = ?`,
				lead.CampaignID, *lead.WebsiteURL,
			)
			var existingID string
			if scanErr := row.Scan(&existingID); scanErr == nil {
				return s.refreshLead(ctx, existingID, lead)
			}
		}
		return nil, false, err
	}
	return stored, true, nil
}

func (s *SQLiteStore) insertLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	stored := *lead
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Status == "" {
		stored.Status = model.LeadStatusNew
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	urls, err := json.Marshal(stored.ServiceImageURLs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal service image urls")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (
			id, campaign_id, business_name, website_url, phone, email, address,
			source_url, demo_url, hero_image_url, service_image_urls, status,
			do_not_contact, email_sent_count, call_attempts, interested, booked,
			last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.CampaignID, stored.BusinessName, stored.WebsiteURL,
		stored.Phone, stored.Email, stored.Address, stored.SourceURL,
		stored.DemoURL, stored.HeroImageURL, string(urls), string(stored.Status),
		stored.DoNotContact, stored.EmailSentCount, stored.CallAttempts,
		stored.Interested, stored.Booked, stored.LastError,
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &stored, nil
}

// refreshLead merges newly scraped contact fields into an existing lead
// without touching its pipeline position.
func (s *SQLiteStore) refreshLead(ctx context.Context, id string, in *model.Lead) (*model.Lead, bool, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE leads SET
			business_name = ?,
			phone = COALESCE(?, phone),
			email = COALESCE(?, email),
			address = COALESCE(?, address),
			source_url = CASE WHEN ? != '' THEN ? ELSE source_url END,
			updated_at = ?
		 WHERE id = ?`,
		in.BusinessName, in.Phone, in.Email, in.Address,
		in.SourceURL, in.SourceURL, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: refresh lead %s", id)
	}
	stored, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

const leadColumns = `id, campaign_id, business_name, website_url, phone, email,
	address, source_url, demo_url, hero_image_url, service_image_urls, status,
	do_not_contact, email_sent_count, call_attempts, interested, booked,
	last_error, created_at, updated_at`

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id,
	)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any
	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, orDefault(filter.Limit, 500))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	cur, err := s.GetLead(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.CanAdvanceTo(status) {
		return eris.Wrapf(ErrIllegalTransition, "lead %s: %s -> %s", id, cur.Status, status)
	}
	// Guard on the status read above so a concurrent writer loses cleanly.
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), time.Now().UTC(), id, string(cur.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	if n == 0 {
		// The row existed moments ago; a concurrent writer moved it first.
		if _, gerr := s.GetLead(ctx, id); gerr == nil {
			return eris.Wrapf(ErrIllegalTransition, "lead %s: lost race from %s to %s", id, cur.Status, status)
		}
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}

func (s *SQLiteStore) SetLeadError(ctx context.Context, id, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET last_error = ?, updated_at = ? WHERE id = ?`,
		msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead error %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) MarkDoNotContact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET do_not_contact = 1, status = ?, updated_at = ? WHERE id = ?`,
		string(model.LeadStatusDoNotContact), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark do not contact %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) LeadStatusCounts(ctx context.Context, campaignID string) (map[model.LeadStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM leads`
	var args []any
	if campaignID != "" {
		query += ` WHERE campaign_id = ?`
		args = append(args, campaignID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead status counts")
	}
	defer rows.Close()

	counts := make(map[model.LeadStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.LeadStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) SetLeadOutcome(ctx context.Context, id string, interested, booked bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET interested = ?, booked = ?, updated_at = ? WHERE id = ?`,
		interested, booked, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead outcome %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) IncrementEmailSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET email_sent_count = email_sent_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment email sent %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) IncrementCallAttempts(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET call_attempts = call_attempts + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment call attempts %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) SetLeadDemo(ctx context.Context, id, demoURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET demo_url = ?, updated_at = ? WHERE id = ?`,
		demoURL, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead demo %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) SetLeadImages(ctx context.Context, id, heroURL string, serviceURLs []string) error {
	urls, err := json.Marshal(serviceURLs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal service image urls")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET hero_image_url = ?, service_image_urls = ?, updated_at = ? WHERE id = ?`,
		heroURL, string(urls), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead images %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) SetLeadContact(ctx context.Context, id string, phone, email *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET
			phone = COALESCE(?, phone),
			email = COALESCE(?, email),
			updated_at = ?
		 WHERE id = ?`,
		phone, email, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set lead contact %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

// Events

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *model.Event) (*model.Event, error) {
	stored := *ev
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now().UTC()

	var meta *string
	if len(stored.Metadata) > 0 {
		m := string(stored.Metadata)
		meta = &m
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, campaign_id, lead_id, type, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.CampaignID, stored.LeadID, string(stored.Type), meta, stored.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: append event")
	}
	return &stored, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	query := `SELECT id, campaign_id, lead_id, type, metadata, created_at FROM events WHERE 1=1`
	var args []any
	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.LeadID != "" {
		query += ` AND lead_id = ?`
		args = append(args, filter.LeadID)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, orDefault(filter.Limit, 1000))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

func (s *SQLiteStore) LatestEvent(ctx context.Context, campaignID string, leadID *string, t model.EventType) (*model.Event, error) {
	query := `SELECT id, campaign_id, lead_id, type, metadata, created_at FROM events
		WHERE campaign_id = ? AND type = ?`
	args := []any{campaignID, string(t)}
	if leadID != nil {
		query += ` AND lead_id = ?`
		args = append(args, *leadID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ev, nil
}

// Idempotency

func (s *SQLiteStore) ClaimIdempotencyKey(ctx context.Context, key *model.IdempotencyKey) error {
	key.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (key, stage, campaign_id, lead_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key.Key, key.Stage, key.CampaignID, key.LeadID, key.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(ErrKeyClaimed, "key %s", key.Key)
		}
		return eris.Wrapf(err, "sqlite: claim idempotency key %s", key.Key)
	}
	return nil
}

func (s *SQLiteStore) GetIdempotencyKey(ctx context.Context, key string) (*model.IdempotencyKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, stage, campaign_id, lead_id, result, created_at, completed_at
		 FROM idempotency_keys WHERE key = ?`, key,
	)

	var k model.IdempotencyKey
	var result sql.NullString
	err := row.Scan(&k.Key, &k.Stage, &k.CampaignID, &k.LeadID, &result, &k.CreatedAt, &k.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get idempotency key %s", key)
	}
	if result.Valid {
		k.Result = json.RawMessage(result.String)
	}
	return &k, nil
}

func (s *SQLiteStore) CompleteIdempotencyKey(ctx context.Context, key string, result []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE idempotency_keys SET result = ?, completed_at = ? WHERE key = ?`,
		string(result), time.Now().UTC(), key,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete idempotency key %s", key)
	}
	return checkRowsAffected(res, "idempotency key", key)
}

func (s *SQLiteStore) DeleteIdempotencyKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE key = ?`, key,
	)
	return eris.Wrapf(err, "sqlite: delete idempotency key %s", key)
}

// helpers

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.Niche, &c.City, &c.Limit, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "campaign")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan campaign")
	}
	return &c, nil
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var urls string
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.BusinessName, &l.WebsiteURL, &l.Phone, &l.Email,
		&l.Address, &l.SourceURL, &l.DemoURL, &l.HeroImageURL, &urls, &l.Status,
		&l.DoNotContact, &l.EmailSentCount, &l.CallAttempts, &l.Interested,
		&l.Booked, &l.LastError, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "lead")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan lead")
	}
	if err := json.Unmarshal([]byte(urls), &l.ServiceImageURLs); err != nil {
		return nil, eris.Wrap(err, "unmarshal service image urls")
	}
	return &l, nil
}

func scanEvent(row scannable) (*model.Event, error) {
	var ev model.Event
	var meta sql.NullString
	err := row.Scan(&ev.ID, &ev.CampaignID, &ev.LeadID, &ev.Type, &meta, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "event")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan event")
	}
	if meta.Valid {
		ev.Metadata = json.RawMessage(meta.String)
	}
	return &ev, nil
}
