package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
)

type callResult struct {
	CallID string `json:"call_id"`
	To     string `json:"to"`
}

// handleCall places one outbound call attempt. Call outcomes arrive later via
// the provider webhook; this stage only starts the call and records it.
func (e *Engine) handleCall(ctx context.Context, job queue.Job) error {
	var payload model.CallJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead.DoNotContact {
		return e.skipLead(ctx, lead, "call", "do not contact")
	}
	if lead.CallAttempts >= payload.Attempt {
		zap.L().Debug("duplicate delivery, call attempt already placed",
			zap.String("lead_id", lead.ID),
			zap.Int("attempt", payload.Attempt),
		)
		return nil
	}
	if payload.Attempt > e.maxCallAttempts {
		return e.skipLead(ctx, lead, "call", "call attempts exhausted")
	}
	if lead.Phone == nil || *lead.Phone == "" {
		if err := e.store.SetLeadError(ctx, lead.ID, "no phone number on file"); err != nil {
			return err
		}
		return e.skipLead(ctx, lead, "call", "no phone number on file")
	}

	expected := model.LeadStatusEmailed1
	switch {
	case payload.Attempt > 1:
		expected = model.LeadStatusCalled1
	case lead.EmailSentCount == 0 && (lead.Email == nil || *lead.Email == ""):
		// The email stage skipped this lead for missing address; calls
		// start straight from deployed.
		expected = model.LeadStatusDeployed
	}
	proceed, err := checkStage(lead, expected)
	if err != nil || !proceed {
		return err
	}

	campaign, err := e.store.GetCampaign(ctx, lead.CampaignID)
	if err != nil {
		return err
	}
	enrichment, err := e.enrichmentFor(ctx, lead)
	if err != nil {
		return err
	}
	script, err := e.providers.Copywriter.CallScript(ctx, e.copyRequest(campaign, lead, enrichment))
	if err != nil {
		return err
	}

	to := *lead.Phone
	key := &model.IdempotencyKey{
		Key:        model.CallKey(lead.ID, payload.Attempt),
		Stage:      "call",
		CampaignID: lead.CampaignID,
		LeadID:     &lead.ID,
	}
	result, executed, err := runIdempotent(ctx, e.store, key, func(ctx context.Context) (callResult, error) {
		id, err := e.providers.Caller.PlaceCall(ctx, provider.OutboundCall{
			PhoneNumber: to,
			Script:      script,
			LeadID:      lead.ID,
		})
		if err != nil {
			return callResult{}, err
		}
		return callResult{CallID: id, To: to}, nil
	})
	if err != nil {
		return err
	}

	if err := e.store.IncrementCallAttempts(ctx, lead.ID); err != nil {
		return err
	}
	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventCallPlaced, model.CallPlacedMeta{
		Attempt: payload.Attempt,
		CallID:  result.CallID,
		To:      result.To,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if payload.Attempt == 1 {
		if err := e.advanceTo(ctx, lead, model.LeadStatusCalled1); err != nil {
			return err
		}
	}

	zap.L().Info("outbound call placed",
		zap.String("lead_id", lead.ID),
		zap.Int("attempt", payload.Attempt),
		zap.String("call_id", result.CallID),
		zap.Bool("reused", !executed),
	)

	if payload.Attempt < e.maxCallAttempts {
		return e.broker.Publish(ctx, queue.StageCall,
			model.CallJob{LeadID: lead.ID, Attempt: payload.Attempt + 1},
			queue.WithDelay(e.callDelay),
		)
	}
	return nil
}
