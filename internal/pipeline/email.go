package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
)

type emailResult struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	To        string `json:"to"`
}

// handleEmail sends one outreach email step. The send itself is guarded by an
// idempotency key so a redelivered job never emails the same lead twice for
// the same step.
func (e *Engine) handleEmail(ctx context.Context, job queue.Job) error {
	var payload model.EmailJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead.DoNotContact {
		return e.skipLead(ctx, lead, "email", "do not contact")
	}
	if lead.EmailSentCount >= payload.Step {
		zap.L().Debug("duplicate delivery, email step already sent",
			zap.String("lead_id", lead.ID),
			zap.Int("step", payload.Step),
		)
		return nil
	}
	if lead.Email == nil || *lead.Email == "" {
		if err := e.store.SetLeadError(ctx, lead.ID, "no email address on file"); err != nil {
			return err
		}
		if err := e.skipLead(ctx, lead, "email", "no email address on file"); err != nil {
			return err
		}
		// Degraded data skips the stage, not the lead: go straight to the
		// call, with no spacing since no email went out.
		return e.broker.Publish(ctx, queue.StageCall, model.CallJob{LeadID: lead.ID, Attempt: 1})
	}
	expected := model.LeadStatusDeployed
	if payload.Step > 1 {
		expected = model.LeadStatusEmailed1
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
	emailCopy, err := e.providers.Copywriter.EmailCopy(ctx, e.copyRequest(campaign, lead, enrichment), payload.Step)
	if err != nil {
		return err
	}

	to := *lead.Email
	key := &model.IdempotencyKey{
		Key:        model.EmailKey(lead.ID, payload.Step),
		Stage:      "email",
		CampaignID: lead.CampaignID,
		LeadID:     &lead.ID,
	}
	result, executed, err := runIdempotent(ctx, e.store, key, func(ctx context.Context) (emailResult, error) {
		id, err := e.providers.Email.SendEmail(ctx, provider.EmailMessage{
			To:      to,
			Subject: emailCopy.Subject,
			Body:    emailCopy.Body,
		})
		if err != nil {
			return emailResult{}, err
		}
		return emailResult{MessageID: id, Subject: emailCopy.Subject, To: to}, nil
	})
	if err != nil {
		return err
	}

	if err := e.store.IncrementEmailSent(ctx, lead.ID); err != nil {
		return err
	}
	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventEmailSent, model.EmailSentMeta{
		Step:      payload.Step,
		MessageID: result.MessageID,
		To:        result.To,
		Subject:   result.Subject,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if payload.Step == 1 {
		if err := e.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusEmailed1); err != nil {
			return err
		}
	}

	zap.L().Info("outreach email sent",
		zap.String("lead_id", lead.ID),
		zap.Int("step", payload.Step),
		zap.String("message_id", result.MessageID),
		zap.Bool("reused", !executed),
	)
	return e.broker.Publish(ctx, queue.StageCall,
		model.CallJob{LeadID: lead.ID, Attempt: 1},
		queue.WithDelay(e.callDelay),
	)
}
