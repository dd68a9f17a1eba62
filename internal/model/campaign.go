package model

import "time"

// CampaignStatus tracks a campaign through its lifecycle. Transitions are
// forward-only: a completed or failed campaign never reverts.
type CampaignStatus string

const (
	CampaignStatusCreated  CampaignStatus = "created"
	CampaignStatusRunning  CampaignStatus = "running"
	CampaignStatusComplete CampaignStatus = "complete"
	CampaignStatusFailed   CampaignStatus = "failed"
)

var campaignStatusRank = map[CampaignStatus]int{
	CampaignStatusCreated:  0,
	CampaignStatusRunning:  1,
	CampaignStatusComplete: 2,
	CampaignStatusFailed:   2,
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only rule.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	cur, ok := campaignStatusRank[s]
	if !ok {
		return false
	}
	nr, ok := campaignStatusRank[next]
	if !ok {
		return false
	}
	return nr > cur
}

// Campaign is one unit of outreach work: a niche searched in a city, capped
// at a maximum number of leads. It owns its leads and events.
type Campaign struct {
	ID        string         `json:"id"`
	Niche     string         `json:"niche"`
	City      string         `json:"city"`
	Limit     int            `json:"limit"`
	Status    CampaignStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
