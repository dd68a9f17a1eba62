package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// EventType is the closed set of facts the pipeline records.
type EventType string

const (
	EventCampaignCreated   EventType = "campaign_created"
	EventCampaignCompleted EventType = "campaign_completed"
	EventLeadScraped       EventType = "lead_scraped"
	EventLeadEnriched      EventType = "lead_enriched"
	EventSiteGenerated     EventType = "site_generated"
	EventImagesReady       EventType = "images_ready"
	EventDeployed          EventType = "deployed"
	EventEmailSent         EventType = "email_sent"
	EventCallPlaced        EventType = "call_placed"
	EventCallResult        EventType = "call_result"
	EventLeadSkipped       EventType = "lead_skipped"
)

// Event is an immutable fact about a campaign or lead. Events are append-only
// and double as the read model for later stages: Site-Generate, for example,
// reads the latest lead_enriched payload instead of re-crawling.
type Event struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	LeadID     *string         `json:"lead_id,omitempty"`
	Type       EventType       `json:"type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// One payload struct per event type. Metadata is a closed sum keyed by Type;
// DecodeMetadata is the only way payloads come back out, so stages never cast
// loose maps.

// CampaignCreatedMeta records the campaign parameters at creation time.
type CampaignCreatedMeta struct {
	Niche string `json:"niche"`
	City  string `json:"city"`
	Limit int    `json:"limit"`
}

// CampaignCompletedMeta summarizes the scrape fan-out for a campaign.
type CampaignCompletedMeta struct {
	Found    int `json:"found"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// LeadScrapedMeta records where a lead came from.
type LeadScrapedMeta struct {
	BusinessName string `json:"business_name"`
	WebsiteURL   string `json:"website_url,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
}

// LeadEnrichedMeta holds everything extracted from the lead's website. Empty
// slices are valid: enrichment is best-effort and records what it found, even
// when that is nothing.
type LeadEnrichedMeta struct {
	Phone           string   `json:"phone,omitempty"`
	Email           string   `json:"email,omitempty"`
	ServiceKeywords []string `json:"service_keywords"`
	Claims          []string `json:"claims"`
	PagesVisited    []string `json:"pages_visited"`
}

// SiteGeneratedMeta records the generated demo artifact.
type SiteGeneratedMeta struct {
	ArtifactDir string `json:"artifact_dir"`
	Headline    string `json:"headline"`
	Summary     string `json:"summary"`
}

// ImagesReadyMeta records the images assigned to a demo site.
type ImagesReadyMeta struct {
	HeroImageURL     string   `json:"hero_image_url"`
	ServiceImageURLs []string `json:"service_image_urls"`
}

// DeployedMeta records the externally visible demo URL.
type DeployedMeta struct {
	DemoURL string `json:"demo_url"`
	Project string `json:"project"`
}

// EmailSentMeta records one outreach email.
type EmailSentMeta struct {
	Step      int    `json:"step"`
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
}

// CallPlacedMeta records one outbound call.
type CallPlacedMeta struct {
	Attempt int    `json:"attempt"`
	CallID  string `json:"call_id"`
	To      string `json:"to"`
}

// CallResultMeta records a call outcome reported via webhook.
type CallResultMeta struct {
	Provider   string `json:"provider"`
	CallID     string `json:"call_id,omitempty"`
	Status     string `json:"status"`
	Transcript string `json:"transcript,omitempty"`
	OptOut     bool   `json:"opt_out"`
}

// LeadSkippedMeta records a deliberate skip (policy, cap, or missing data).
type LeadSkippedMeta struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// NewEvent builds an event with a marshaled typed payload. The payload must be
// the meta struct matching the event type.
func NewEvent(campaignID string, leadID *string, t EventType, meta any) (*Event, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, eris.Wrapf(err, "model: marshal %s metadata", t)
	}
	return &Event{
		CampaignID: campaignID,
		LeadID:     leadID,
		Type:       t,
		Metadata:   raw,
	}, nil
}

// DecodeMetadata parses an event payload into the typed struct for its type.
func DecodeMetadata(t EventType, raw json.RawMessage) (any, error) {
	var meta any
	switch t {
	case EventCampaignCreated:
		meta = &CampaignCreatedMeta{}
	case EventCampaignCompleted:
		meta = &CampaignCompletedMeta{}
	case EventLeadScraped:
		meta = &LeadScrapedMeta{}
	case EventLeadEnriched:
		meta = &LeadEnrichedMeta{}
	case EventSiteGenerated:
		meta = &SiteGeneratedMeta{}
	case EventImagesReady:
		meta = &ImagesReadyMeta{}
	case EventDeployed:
		meta = &DeployedMeta{}
	case EventEmailSent:
		meta = &EmailSentMeta{}
	case EventCallPlaced:
		meta = &CallPlacedMeta{}
	case EventCallResult:
		meta = &CallResultMeta{}
	case EventLeadSkipped:
		meta = &LeadSkippedMeta{}
	default:
		return nil, eris.Errorf("model: unknown event type %q", t)
	}
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, eris.Wrapf(err, "model: decode %s metadata", t)
	}
	return meta, nil
}
