// Package monitoring reports funnel health: how leads are distributed across
// the pipeline, how deep the stage queues are, and whether jobs are dying.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Snapshot is a point-in-time view of funnel health.
type Snapshot struct {
	TotalLeads   int                      `json:"total_leads"`
	LeadCounts   map[model.LeadStatus]int `json:"lead_counts"`
	DoNotContact int                      `json:"do_not_contact"`
	Booked       int                      `json:"booked"`

	QueueDepths     map[queue.Stage]int `json:"queue_depths"`
	DeadLetterCount int                 `json:"dead_letter_count"`

	CollectedAt time.Time `json:"collected_at"`
}

// DeadLetterRate is the share of leads that ended in the dead-letter queue.
func (s *Snapshot) DeadLetterRate() float64 {
	if s.TotalLeads == 0 {
		return 0
	}
	return float64(s.DeadLetterCount) / float64(s.TotalLeads)
}

// Collector gathers snapshots from the store and the broker.
type Collector struct {
	store  store.Store
	broker queue.Broker
}

// NewCollector creates a funnel metrics collector.
func NewCollector(st store.Store, broker queue.Broker) *Collector {
	return &Collector{store: st, broker: broker}
}

// Collect builds a snapshot. An empty campaignID covers all campaigns.
func (c *Collector) Collect(ctx context.Context, campaignID string) (*Snapshot, error) {
	snap := &Snapshot{
		LeadCounts:  make(map[model.LeadStatus]int),
		QueueDepths: make(map[queue.Stage]int),
		CollectedAt: time.Now().UTC(),
	}

	counts, err := c.store.LeadStatusCounts(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: lead status counts")
	}
	for status, n := range counts {
		snap.LeadCounts[status] = n
		snap.TotalLeads += n
	}
	snap.DoNotContact = counts[model.LeadStatusDoNotContact]
	snap.Booked = counts[model.LeadStatusBooked]

	if c.broker != nil {
		for _, stage := range queue.Stages {
			snap.QueueDepths[stage] = c.broker.Depth(stage)
		}
		snap.DeadLetterCount = len(c.broker.DeadLetters())
	}

	return snap, nil
}
