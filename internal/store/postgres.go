package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	niche      TEXT NOT NULL,
	city       TEXT NOT NULL,
	lead_limit INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'created',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	service_image_urls JSONB NOT NULL DEFAULT '[]',
	status             TEXT NOT NULL DEFAULT 'new',
	do_not_contact     BOOLEAN NOT NULL DEFAULT false,
	email_sent_count   INTEGER NOT NULL DEFAULT 0,
	call_attempts      INTEGER NOT NULL DEFAULT 0,
	interested         BOOLEAN NOT NULL DEFAULT false,
	booked             BOOLEAN NOT NULL DEFAULT false,
	last_error         TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	lead_id     TEXT REFERENCES leads(id) ON DELETE SET NULL,
	type        TEXT NOT NULL,
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key          TEXT PRIMARY KEY,
	stage        TEXT NOT NULL,
	campaign_id  TEXT NOT NULL,
	lead_id      TEXT,
	result       JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Campaigns

func (s *PostgresStore) CreateCampaign(ctx context.Context, niche, city string, limit int) (*model.Campaign, error) {
	c := &model.Campaign{
		ID:        uuid.New().String(),
		Niche:     niche,
		City:      city,
		Limit:     limit,
		Status:    model.CampaignStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, niche, city, lead_limit, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Niche, c.City, c.Limit, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert campaign")
	}
	return c, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, niche, city, lead_limit, status, created_at, updated_at
		 FROM campaigns WHERE id = $1`, id,
	)
	c, err := scanPgCampaign(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error) {
	query := `SELECT id, niche, city, lead_limit, status, created_at, updated_at
		FROM campaigns WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query,
		string(filter.Status), orDefault(filter.Limit, 100), filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		c, err := scanPgCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list campaigns scan")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	cur, err := s.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.CanTransitionTo(status) {
		return eris.Wrapf(ErrIllegalTransition, "campaign %s: %s -> %s", id, cur.Status, status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(status), time.Now().UTC(), id, string(cur.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign status %s", id)
	}
	return checkPgRows(tag, "campaign", id)
}

func (s *PostgresStore) DeleteCampaign(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete campaign %s", id)
	}
	return checkPgRows(tag, "campaign", id)
}

// Leads

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error) {
	if lead.WebsiteURL != nil {
		row := s.pool.QueryRow(ctx,
			`SELECT id FROM leads WHERE campaign_id = $1 AND website_url = $2`,
			lead.CampaignID, *lead.WebsiteURL,
		)
		var existingID string
		err := row.Scan(&existingID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// fall through to insert
		case err != nil:
			return nil, false, eris.Wrap(err, "postgres: lookup lead by website")
		default:
			return s.refreshLead(ctx, existingID, lead)
		}
	}

	stored, err := s.insertLead(ctx, lead)
	if err != nil {
		if lead.WebsiteURL != nil && isUniqueViolation(err) {
			row := s.pool.QueryRow(ctx,
				`SELECT id FROM leads WHERE campaign_id = $1 AND website_url = $2`,
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

func (s *PostgresStore) insertLead(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal service image urls")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (
			id, campaign_id, business_name, website_url, phone, email, address,
			source_url, demo_url, hero_image_url, service_image_urls, status,
			do_not_contact, email_sent_count, call_attempts, interested, booked,
			last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20)`,
		stored.ID, stored.CampaignID, stored.BusinessName, stored.WebsiteURL,
		stored.Phone, stored.Email, stored.Address, stored.SourceURL,
		stored.DemoURL, stored.HeroImageURL, string(urls), string(stored.Status),
		stored.DoNotContact, stored.EmailSentCount, stored.CallAttempts,
		stored.Interested, stored.Booked, stored.LastError,
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &stored, nil
}

func (s *PostgresStore) refreshLead(ctx context.Context, id string, in *model.Lead) (*model.Lead, bool, error) {
	_, err := s.pool.Exec(ctx,
		`UPDATE leads SET
			business_name = $1,
			phone = COALESCE($2, phone),
			email = COALESCE($3, email),
			address = COALESCE($4, address),
			source_url = CASE WHEN $5 != '' THEN $5 ELSE source_url END,
			updated_at = $6
		 WHERE id = $7`,
		in.BusinessName, in.Phone, in.Email, in.Address,
		in.SourceURL, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: refresh lead %s", id)
	}
	stored, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

const pgLeadColumns = `id, campaign_id, business_name, website_url, phone, email,
	address, source_url, demo_url, hero_image_url, service_image_urls, status,
	do_not_contact, email_sent_count, call_attempts, interested, booked,
	last_error, created_at, updated_at`

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLeadColumns+` FROM leads WHERE id = $1`, id,
	)
	l, err := scanPgLead(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + pgLeadColumns + ` FROM leads
		WHERE ($1 = '' OR campaign_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC LIMIT $3 OFFSET $4`
	rows, err := s.pool.Query(ctx, query,
		filter.CampaignID, string(filter.Status), orDefault(filter.Limit, 500), filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list leads scan")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	cur, err := s.GetLead(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.CanAdvanceTo(status) {
		return eris.Wrapf(ErrIllegalTransition, "lead %s: %s -> %s", id, cur.Status, status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(status), time.Now().UTC(), id, string(cur.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead status %s", id)
	}
	if tag.RowsAffected() == 0 {
		// The row existed moments ago; a concurrent writer moved it first.
		if _, gerr := s.GetLead(ctx, id); gerr == nil {
			return eris.Wrapf(ErrIllegalTransition, "lead %s: lost race from %s to %s", id, cur.Status, status)
		}
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}

func (s *PostgresStore) SetLeadError(ctx context.Context, id, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET last_error = $1, updated_at = $2 WHERE id = $3`,
		msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead error %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) MarkDoNotContact(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET do_not_contact = true, status = $1, updated_at = $2 WHERE id = $3`,
		string(model.LeadStatusDoNotContact), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark do not contact %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) LeadStatusCounts(ctx context.Context, campaignID string) (map[model.LeadStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM leads
		 WHERE ($1 = '' OR campaign_id = $1)
		 GROUP BY status`, campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead status counts")
	}
	defer rows.Close()

	counts := make(map[model.LeadStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.LeadStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) SetLeadOutcome(ctx context.Context, id string, interested, booked bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET interested = $1, booked = $2, updated_at = $3 WHERE id = $4`,
		interested, booked, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead outcome %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) IncrementEmailSent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET email_sent_count = email_sent_count + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment email sent %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) IncrementCallAttempts(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET call_attempts = call_attempts + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment call attempts %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) SetLeadDemo(ctx context.Context, id, demoURL string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET demo_url = $1, updated_at = $2 WHERE id = $3`,
		demoURL, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead demo %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) SetLeadImages(ctx context.Context, id, heroURL string, serviceURLs []string) error {
	urls, err := json.Marshal(serviceURLs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal service image urls")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET hero_image_url = $1, service_image_urls = $2, updated_at = $3 WHERE id = $4`,
		heroURL, string(urls), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead images %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

func (s *PostgresStore) SetLeadContact(ctx context.Context, id string, phone, email *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET
			phone = COALESCE($1, phone),
			email = COALESCE($2, email),
			updated_at = $3
		 WHERE id = $4`,
		phone, email, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set lead contact %s", id)
	}
	return checkPgRows(tag, "lead", id)
}

// Events

func (s *PostgresStore) AppendEvent(ctx context.Context, ev *model.Event) (*model.Event, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, campaign_id, lead_id, type, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		stored.ID, stored.CampaignID, stored.LeadID, string(stored.Type), meta, stored.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: append event")
	}
	return &stored, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	query := `SELECT id, campaign_id, lead_id, type, metadata, created_at FROM events
		WHERE ($1 = '' OR campaign_id = $1)
		  AND ($2 = '' OR lead_id = $2)
		  AND ($3 = '' OR type = $3)
		ORDER BY created_at ASC, id ASC LIMIT $4`
	rows, err := s.pool.Query(ctx, query,
		filter.CampaignID, filter.LeadID, string(filter.Type), orDefault(filter.Limit, 1000),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanPgEvent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list events scan")
		}
		out = append(out, *ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func (s *PostgresStore) LatestEvent(ctx context.Context, campaignID string, leadID *string, t model.EventType) (*model.Event, error) {
	query := `SELECT id, campaign_id, lead_id, type, metadata, created_at FROM events
		WHERE campaign_id = $1 AND type = $2 AND ($3::text IS NULL OR lead_id = $3)
		ORDER BY created_at DESC, id DESC LIMIT 1`
	ev, err := scanPgEvent(s.pool.QueryRow(ctx, query, campaignID, string(t), leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest event")
	}
	return ev, nil
}

// Idempotency

func (s *PostgresStore) ClaimIdempotencyKey(ctx context.Context, key *model.IdempotencyKey) error {
	key.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, stage, campaign_id, lead_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		key.Key, key.Stage, key.CampaignID, key.LeadID, key.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(ErrKeyClaimed, "key %s", key.Key)
		}
		return eris.Wrapf(err, "postgres: claim idempotency key %s", key.Key)
	}
	return nil
}

func (s *PostgresStore) GetIdempotencyKey(ctx context.Context, key string) (*model.IdempotencyKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT key, stage, campaign_id, lead_id, result, created_at, completed_at
		 FROM idempotency_keys WHERE key = $1`, key,
	)

	var k model.IdempotencyKey
	var result *string
	err := row.Scan(&k.Key, &k.Stage, &k.CampaignID, &k.LeadID, &result, &k.CreatedAt, &k.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get idempotency key %s", key)
	}
	if result != nil {
		k.Result = json.RawMessage(*result)
	}
	return &k, nil
}

func (s *PostgresStore) CompleteIdempotencyKey(ctx context.Context, key string, result []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE idempotency_keys SET result = $1, completed_at = $2 WHERE key = $3`,
		string(result), time.Now().UTC(), key,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete idempotency key %s", key)
	}
	return checkPgRows(tag, "idempotency key", key)
}

func (s *PostgresStore) DeleteIdempotencyKey(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE key = $1`, key,
	)
	return eris.Wrapf(err, "postgres: delete idempotency key %s", key)
}

// helpers

func checkPgRows(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func scanPgCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.Niche, &c.City, &c.Limit, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "campaign")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var urls string
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.BusinessName, &l.WebsiteURL, &l.Phone, &l.Email,
		&l.Address, &l.SourceURL, &l.DemoURL, &l.HeroImageURL, &urls, &l.Status,
		&l.DoNotContact, &l.EmailSentCount, &l.CallAttempts, &l.Interested,
		&l.Booked, &l.LastError, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "lead")
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(urls), &l.ServiceImageURLs); err != nil {
		return nil, eris.Wrap(err, "unmarshal service image urls")
	}
	return &l, nil
}

func scanPgEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	var meta *string
	err := row.Scan(&ev.ID, &ev.CampaignID, &ev.LeadID, &ev.Type, &meta, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		ev.Metadata = json.RawMessage(*meta)
	}
	return &ev, nil
}
