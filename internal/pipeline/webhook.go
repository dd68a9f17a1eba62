package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrMissingCorrelation means a webhook payload carried neither a lead nor a
// campaign reference and cannot be applied.
var ErrMissingCorrelation = eris.New("pipeline: webhook payload has no lead or campaign id")

// CallWebhook is the normalized payload of a call-provider webhook.
type CallWebhook struct {
	CallID     string `json:"call_id"`
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
	Transcript string `json:"transcript"`
	Interested bool   `json:"interested"`
	Booked     bool   `json:"booked"`
}

// CallIngestResult reports what a webhook delivery changed.
type CallIngestResult struct {
	Provider      string `json:"provider"`
	OptOutApplied bool   `json:"opt_out_applied"`
}

// optOutPhrases flag a transcript as a do-not-contact request. Matching is a
// case-insensitive substring check over the whole transcript.
var optOutPhrases = []string{
	"do not call",
	"stop calling",
	"remove me",
	"opt out",
	"unsubscribe",
}

// IngestCallWebhook applies a call outcome to the lead it belongs to. An
// opt-out in the transcript marks the lead do-not-contact regardless of its
// current status; a reply advances the lead to replied. A payload carrying
// only a campaign id is recorded against the campaign.
func (e *Engine) IngestCallWebhook(ctx context.Context, providerName string, payload CallWebhook) (*CallIngestResult, error) {
	if payload.LeadID == "" {
		if payload.CampaignID == "" {
			return nil, ErrMissingCorrelation
		}
		return e.ingestCampaignCall(ctx, providerName, payload)
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return nil, err
	}

	optOut := transcriptOptsOut(payload.Transcript)

	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventCallResult, model.CallResultMeta{
		Provider:   providerName,
		CallID:     payload.CallID,
		Status:     payload.Status,
		Transcript: payload.Transcript,
		OptOut:     optOut,
	})
	if err != nil {
		return nil, err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return nil, err
	}

	result := &CallIngestResult{Provider: providerName}

	if optOut {
		if err := e.store.MarkDoNotContact(ctx, lead.ID); err != nil {
			return nil, err
		}
		result.OptOutApplied = true
		zap.L().Info("lead opted out",
			zap.String("lead_id", lead.ID),
			zap.String("provider", providerName),
			zap.String("call_id", payload.CallID),
		)
		return result, nil
	}

	if payload.Interested != lead.Interested || payload.Booked != lead.Booked {
		interested := payload.Interested || lead.Interested
		booked := payload.Booked || lead.Booked
		if err := e.store.SetLeadOutcome(ctx, lead.ID, interested, booked); err != nil {
			return nil, err
		}
	}

	replied := replyStatus(payload.Status) || payload.Interested || payload.Booked
	if replied && model.StatusRank(lead.Status) < model.StatusRank(model.LeadStatusReplied) {
		if err := e.advanceTo(ctx, lead, model.LeadStatusReplied); err != nil {
			return nil, err
		}
		lead.Status = model.LeadStatusReplied
	}
	if payload.Booked && model.StatusRank(lead.Status) < model.StatusRank(model.LeadStatusBooked) {
		if err := e.advanceTo(ctx, lead, model.LeadStatusBooked); err != nil {
			return nil, err
		}
	}

	zap.L().Info("call result recorded",
		zap.String("lead_id", lead.ID),
		zap.String("provider", providerName),
		zap.String("call_id", payload.CallID),
		zap.String("status", payload.Status),
	)
	return result, nil
}

// ingestCampaignCall records a callback that the provider could only
// correlate to a campaign. Nothing is mutated beyond the event log.
func (e *Engine) ingestCampaignCall(ctx context.Context, providerName string, payload CallWebhook) (*CallIngestResult, error) {
	campaign, err := e.store.GetCampaign(ctx, payload.CampaignID)
	if err != nil {
		return nil, err
	}

	ev, err := model.NewEvent(campaign.ID, nil, model.EventCallResult, model.CallResultMeta{
		Provider:   providerName,
		CallID:     payload.CallID,
		Status:     payload.Status,
		Transcript: payload.Transcript,
		OptOut:     transcriptOptsOut(payload.Transcript),
	})
	if err != nil {
		return nil, err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return nil, err
	}

	zap.L().Info("campaign-level call result recorded",
		zap.String("campaign_id", campaign.ID),
		zap.String("provider", providerName),
		zap.String("call_id", payload.CallID),
	)
	return &CallIngestResult{Provider: providerName}, nil
}

// advanceTo walks the lead forward one status at a time until it reaches
// target. Intermediate statuses are recorded so the ordering invariant holds.
func (e *Engine) advanceTo(ctx context.Context, lead *model.Lead, target model.LeadStatus) error {
	for rank := model.StatusRank(lead.Status) + 1; rank <= model.StatusRank(target); rank++ {
		next := model.LeadStatusAtRank(rank)
		if next == "" {
			return eris.Errorf("pipeline: no status at rank %d", rank)
		}
		if err := e.store.UpdateLeadStatus(ctx, lead.ID, next); err != nil {
			return err
		}
	}
	return nil
}

func transcriptOptsOut(transcript string) bool {
	t := strings.ToLower(transcript)
	for _, phrase := range optOutPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

func replyStatus(status string) bool {
	switch strings.ToLower(status) {
	case "replied", "answered":
		return true
	}
	return false
}
