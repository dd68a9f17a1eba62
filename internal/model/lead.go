package model

import "time"

// LeadStatus is the lead's position in the outreach pipeline. Statuses form a
// total order; each stage advances a lead by exactly one step. The single
// exception is do_not_contact, which is reachable from any status and is
// terminal.
type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "new"
	LeadStatusScraped       LeadStatus = "scraped"
	LeadStatusEnriched      LeadStatus = "enriched"
	LeadStatusSiteGenerated LeadStatus = "site_generated"
	LeadStatusImagesReady   LeadStatus = "images_ready"
	LeadStatusDeployed      LeadStatus = "deployed"
	LeadStatusEmailed1      LeadStatus = "emailed_1"
	LeadStatusCalled1       LeadStatus = "called_1"
	LeadStatusReplied       LeadStatus = "replied"
	LeadStatusBooked        LeadStatus = "booked"
	LeadStatusDoNotContact  LeadStatus = "do_not_contact"
)

var leadStatusOrder = []LeadStatus{
	LeadStatusNew,
	LeadStatusScraped,
	LeadStatusEnriched,
	LeadStatusSiteGenerated,
	LeadStatusImagesReady,
	LeadStatusDeployed,
	LeadStatusEmailed1,
	LeadStatusCalled1,
	LeadStatusReplied,
	LeadStatusBooked,
}

var leadStatusRank = map[LeadStatus]int{
	LeadStatusNew:           0,
	LeadStatusScraped:       1,
	LeadStatusEnriched:      2,
	LeadStatusSiteGenerated: 3,
	LeadStatusImagesReady:   4,
	LeadStatusDeployed:      5,
	LeadStatusEmailed1:      6,
	LeadStatusCalled1:       7,
	LeadStatusReplied:       8,
	LeadStatusBooked:        9,
}

// StatusRank returns the position of s in the forward order, or -1 for
// do_not_contact and unknown statuses.
func StatusRank(s LeadStatus) int {
	r, ok := leadStatusRank[s]
	if !ok {
		return -1
	}
	return r
}

// LeadStatusAtRank returns the status at a given position in the forward
// order, or the empty status when rank is out of range.
func LeadStatusAtRank(rank int) LeadStatus {
	if rank < 0 || rank >= len(leadStatusOrder) {
		return ""
	}
	return leadStatusOrder[rank]
}

// CanAdvanceTo reports whether a transition from s to next is legal: exactly
// one step forward, or the absorbing jump to do_not_contact. Nothing leaves
// do_not_contact.
func (s LeadStatus) CanAdvanceTo(next LeadStatus) bool {
	if s == LeadStatusDoNotContact {
		return false
	}
	if next == LeadStatusDoNotContact {
		return true
	}
	cur, ok := leadStatusRank[s]
	if !ok {
		return false
	}
	nr, ok := leadStatusRank[next]
	if !ok {
		return false
	}
	return nr == cur+1
}

// Lead is one targeted business inside a campaign. Contact fields fill in
// progressively as stages run; counters are monotonic; DoNotContact is sticky
// once set.
type Lead struct {
	ID               string     `json:"id"`
	CampaignID       string     `json:"campaign_id"`
	BusinessName     string     `json:"business_name"`
	WebsiteURL       *string    `json:"website_url,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Address          *string    `json:"address,omitempty"`
	SourceURL        string     `json:"source_url,omitempty"`
	DemoURL          *string    `json:"demo_url,omitempty"`
	HeroImageURL     *string    `json:"hero_image_url,omitempty"`
	ServiceImageURLs []string   `json:"service_image_urls,omitempty"`
	Status           LeadStatus `json:"status"`
	DoNotContact     bool       `json:"do_not_contact"`
	EmailSentCount   int        `json:"email_sent_count"`
	CallAttempts     int        `json:"call_attempts"`
	Interested       bool       `json:"interested"`
	Booked           bool       `json:"booked"`
	LastError        *string    `json:"last_error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
