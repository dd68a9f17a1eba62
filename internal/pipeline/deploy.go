package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/sitegen"
)

type deployResult struct {
	DemoURL string `json:"demo_url"`
	Project string `json:"project"`
}

// handleDeploy publishes the finished demo site. The upload is guarded by an
// idempotency key: a redelivered job reuses the recorded URL instead of
// creating a second deployment.
func (e *Engine) handleDeploy(ctx context.Context, job queue.Job) error {
	var payload model.LeadJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead.DoNotContact {
		return e.skipLead(ctx, lead, "deploy", "do not contact")
	}
	proceed, err := checkStage(lead, model.LeadStatusImagesReady)
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
	siteCopy, err := e.siteCopyFor(ctx, lead)
	if err != nil {
		return err
	}

	var hero string
	if lead.HeroImageURL != nil {
		hero = *lead.HeroImageURL
	}
	bundle, err := sitegen.Build(sitegen.Input{
		BusinessName:     lead.BusinessName,
		Niche:            campaign.Niche,
		City:             campaign.City,
		Phone:            lead.Phone,
		Email:            lead.Email,
		Headline:         siteCopy.Headline,
		Summary:          siteCopy.Summary,
		ServiceKeywords:  enrichment.ServiceKeywords,
		Claims:           enrichment.Claims,
		HeroImageURL:     hero,
		ServiceImageURLs: lead.ServiceImageURLs,
	})
	if err != nil {
		return err
	}

	project := fmt.Sprintf("demo-%s", shortID(lead.ID))
	key := &model.IdempotencyKey{
		Key:        model.DeployKey(lead.ID),
		Stage:      "deploy",
		CampaignID: lead.CampaignID,
		LeadID:     &lead.ID,
	}
	result, executed, err := runIdempotent(ctx, e.store, key, func(ctx context.Context) (deployResult, error) {
		url, err := e.providers.Deployer.DeploySite(ctx, project, bundle)
		if err != nil {
			return deployResult{}, err
		}
		return deployResult{DemoURL: url, Project: project}, nil
	})
	if err != nil {
		return err
	}

	if err := e.store.SetLeadDemo(ctx, lead.ID, result.DemoURL); err != nil {
		return err
	}

	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventDeployed, model.DeployedMeta{
		DemoURL: result.DemoURL,
		Project: result.Project,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if err := e.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusDeployed); err != nil {
		return err
	}

	zap.L().Info("demo site deployed",
		zap.String("lead_id", lead.ID),
		zap.String("demo_url", result.DemoURL),
		zap.Bool("reused", !executed),
	)
	return e.broker.Publish(ctx, queue.StageEmail, model.EmailJob{LeadID: lead.ID, Step: 1})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
