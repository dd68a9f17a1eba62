package model

// Queue job payloads. Payloads carry only the identifiers needed to re-derive
// state from the ledger and event log, never a snapshot, so redelivery is
// always safe and cheap.

// ScrapeJob fans a campaign out into leads.
type ScrapeJob struct {
	CampaignID string `json:"campaign_id"`
}

// LeadJob drives the enrich, site, image, and deploy stages.
type LeadJob struct {
	LeadID string `json:"lead_id"`
}

// EmailJob sends one email step to a lead.
type EmailJob struct {
	LeadID string `json:"lead_id"`
	Step   int    `json:"step"`
}

// CallJob places one call attempt to a lead.
type CallJob struct {
	LeadID  string `json:"lead_id"`
	Attempt int    `json:"attempt"`
}
