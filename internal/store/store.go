// Package store is the durable backbone of the pipeline: the lead ledger,
// the append-only event log, and the idempotency claim table, behind one
// interface with SQLite and Postgres implementations.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrKeyClaimed is returned by ClaimIdempotencyKey when a row for the key
// already exists, committed or not.
var ErrKeyClaimed = errors.New("store: idempotency key already claimed")

// ErrIllegalTransition is returned by status updates that would violate the
// forward-only ordering.
var ErrIllegalTransition = errors.New("store: illegal status transition")

// CampaignFilter selects campaigns for listing.
type CampaignFilter struct {
	Status model.CampaignStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// LeadFilter selects leads for listing.
type LeadFilter struct {
	CampaignID string           `json:"campaign_id,omitempty"`
	Status     model.LeadStatus `json:"status,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// EventFilter selects events, ordered by creation.
type EventFilter struct {
	CampaignID string          `json:"campaign_id,omitempty"`
	LeadID     string          `json:"lead_id,omitempty"`
	Type       model.EventType `json:"type,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// Store defines persistence for campaigns, leads, events, and idempotency
// keys. All mutating methods return an error when the target row is missing;
// callers treat that as a data-integrity failure, not a retryable condition.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, niche, city string, limit int) (*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.Campaign, error)
	// UpdateCampaignStatus enforces the forward-only campaign lifecycle.
	UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error
	DeleteCampaign(ctx context.Context, id string) error

	// Leads (the ledger)
	// UpsertLead inserts the lead, or updates the existing row when another
	// lead in the same campaign already has the same non-null website URL.
	// Returns the stored lead and whether a new row was inserted.
	UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	// UpdateLeadStatus enforces model.LeadStatus.CanAdvanceTo.
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error
	SetLeadError(ctx context.Context, id, msg string) error
	// MarkDoNotContact is unconditional and idempotent: it sets the sticky
	// flag and the terminal status regardless of current state.
	MarkDoNotContact(ctx context.Context, id string) error
	SetLeadOutcome(ctx context.Context, id string, interested, booked bool) error
	IncrementEmailSent(ctx context.Context, id string) error
	IncrementCallAttempts(ctx context.Context, id string) error
	SetLeadDemo(ctx context.Context, id, demoURL string) error
	SetLeadImages(ctx context.Context, id, heroURL string, serviceURLs []string) error
	SetLeadContact(ctx context.Context, id string, phone, email *string) error

	// LeadStatusCounts returns the number of leads per status, across all
	// campaigns when campaignID is empty.
	LeadStatusCounts(ctx context.Context, campaignID string) (map[model.LeadStatus]int, error)

	// Events (append-only)
	AppendEvent(ctx context.Context, ev *model.Event) (*model.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error)
	// LatestEvent returns the newest event of the given type, or nil when
	// none exists.
	LatestEvent(ctx context.Context, campaignID string, leadID *string, t model.EventType) (*model.Event, error)

	// Idempotency claims
	// ClaimIdempotencyKey inserts a claim row; ErrKeyClaimed when one exists.
	ClaimIdempotencyKey(ctx context.Context, key *model.IdempotencyKey) error
	// GetIdempotencyKey returns nil, nil when the key is absent.
	GetIdempotencyKey(ctx context.Context, key string) (*model.IdempotencyKey, error)
	CompleteIdempotencyKey(ctx context.Context, key string, result []byte) error
	DeleteIdempotencyKey(ctx context.Context, key string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
