package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/sitegen"
)

// handleSite generates the demo site copy and a first render of the bundle.
// The deploy stage re-renders with images before publishing; the artifact
// written here is for local inspection.
func (e *Engine) handleSite(ctx context.Context, job queue.Job) error {
	var payload model.LeadJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead.DoNotContact {
		return e.skipLead(ctx, lead, "site", "do not contact")
	}
	proceed, err := checkStage(lead, model.LeadStatusEnriched)
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

	copyReq := e.copyRequest(campaign, lead, enrichment)
	siteCopy, err := e.providers.Copywriter.SiteCopy(ctx, copyReq)
	if err != nil {
		return err
	}

	bundle, err := sitegen.Build(sitegen.Input{
		BusinessName:    lead.BusinessName,
		Niche:           campaign.Niche,
		City:            campaign.City,
		Phone:           lead.Phone,
		Email:           lead.Email,
		Headline:        siteCopy.Headline,
		Summary:         siteCopy.Summary,
		ServiceKeywords: enrichment.ServiceKeywords,
		Claims:          enrichment.Claims,
	})
	if err != nil {
		return err
	}

	dir := filepath.Join(e.artifactDir, lead.ID)
	if err := e.writeBundle(dir, bundle); err != nil {
		return err
	}

	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventSiteGenerated, model.SiteGeneratedMeta{
		ArtifactDir: dir,
		Headline:    siteCopy.Headline,
		Summary:     siteCopy.Summary,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if err := e.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusSiteGenerated); err != nil {
		return err
	}

	zap.L().Info("demo site generated",
		zap.String("lead_id", lead.ID),
		zap.String("artifact_dir", dir),
	)
	return e.broker.Publish(ctx, queue.StageImages, model.LeadJob{LeadID: lead.ID})
}

func (e *Engine) writeBundle(dir string, bundle map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create artifact dir %s", dir)
	}
	for name, content := range bundle {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			return eris.Wrapf(err, "pipeline: write artifact %s", name)
		}
	}
	return nil
}

// enrichmentFor loads the latest enrichment payload for a lead, or an empty
// one when the lead had nothing to crawl.
func (e *Engine) enrichmentFor(ctx context.Context, lead *model.Lead) (*model.LeadEnrichedMeta, error) {
	ev, err := e.store.LatestEvent(ctx, lead.CampaignID, &lead.ID, model.EventLeadEnriched)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return &model.LeadEnrichedMeta{}, nil
	}
	meta, err := model.DecodeMetadata(ev.Type, ev.Metadata)
	if err != nil {
		return nil, err
	}
	return meta.(*model.LeadEnrichedMeta), nil
}

// siteCopyFor loads the generated copy recorded by the site stage.
func (e *Engine) siteCopyFor(ctx context.Context, lead *model.Lead) (*model.SiteGeneratedMeta, error) {
	ev, err := e.store.LatestEvent(ctx, lead.CampaignID, &lead.ID, model.EventSiteGenerated)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return &model.SiteGeneratedMeta{}, nil
	}
	meta, err := model.DecodeMetadata(ev.Type, ev.Metadata)
	if err != nil {
		return nil, err
	}
	return meta.(*model.SiteGeneratedMeta), nil
}

func (e *Engine) copyRequest(campaign *model.Campaign, lead *model.Lead, enrichment *model.LeadEnrichedMeta) provider.CopyRequest {
	req := provider.CopyRequest{
		BusinessName:    lead.BusinessName,
		Niche:           campaign.Niche,
		City:            campaign.City,
		ServiceKeywords: enrichment.ServiceKeywords,
		Claims:          enrichment.Claims,
	}
	if lead.DemoURL != nil {
		req.DemoURL = *lead.DemoURL
	}
	return req
}
