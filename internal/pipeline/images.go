package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/imagepool"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/queue"
)

const maxServiceImages = 3

// handleImages assigns a hero image and up to three service images to the
// lead's demo site. Images are pooled per niche and subject, so most leads
// hit the cache instead of generating.
func (e *Engine) handleImages(ctx context.Context, job queue.Job) error {
	var payload model.LeadJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead.DoNotContact {
		return e.skipLead(ctx, lead, "images", "do not contact")
	}
	proceed, err := checkStage(lead, model.LeadStatusSiteGenerated)
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

	heroPrompt := fmt.Sprintf("%s business storefront in %s, professional photo", campaign.Niche, campaign.City)
	heroURL, err := e.pooledImage(ctx, campaign.Niche, "hero", heroPrompt)
	if err != nil {
		return err
	}

	subjects := enrichment.ServiceKeywords
	if len(subjects) > maxServiceImages {
		subjects = subjects[:maxServiceImages]
	}
	serviceURLs := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		prompt := fmt.Sprintf("%s performing %s work, professional photo", campaign.Niche, subject)
		url, err := e.pooledImage(ctx, campaign.Niche, subject, prompt)
		if err != nil {
			return err
		}
		serviceURLs = append(serviceURLs, url)
	}

	if err := e.store.SetLeadImages(ctx, lead.ID, heroURL, serviceURLs); err != nil {
		return err
	}

	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventImagesReady, model.ImagesReadyMeta{
		HeroImageURL:     heroURL,
		ServiceImageURLs: serviceURLs,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if err := e.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusImagesReady); err != nil {
		return err
	}

	zap.L().Info("lead images ready",
		zap.String("lead_id", lead.ID),
		zap.Int("service_images", len(serviceURLs)),
	)
	return e.broker.Publish(ctx, queue.StageDeploy, model.LeadJob{LeadID: lead.ID})
}

func (e *Engine) pooledImage(ctx context.Context, niche, subject, prompt string) (string, error) {
	key := imagepool.Key(niche, subject)
	if url, ok := e.images.Get(key); ok {
		return url, nil
	}
	url, err := e.providers.Images.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	e.images.Add(key, url)
	return url, nil
}
