package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
)

// handleScrape runs the listings search for a campaign and fans the results
// out into leads. A failed individual lead is counted and logged but does not
// fail the job; a failed listings search does, so the whole scrape retries.
func (e *Engine) handleScrape(ctx context.Context, job queue.Job) error {
	var payload model.ScrapeJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	campaign, err := e.store.GetCampaign(ctx, payload.CampaignID)
	if err != nil {
		return err
	}
	switch campaign.Status {
	case model.CampaignStatusCreated:
		if err := e.store.UpdateCampaignStatus(ctx, campaign.ID, model.CampaignStatusRunning); err != nil {
			return err
		}
	case model.CampaignStatusRunning:
		// Redelivery mid-scrape; the upserts below make the rerun safe.
	default:
		zap.L().Info("scrape skipped, campaign already finished",
			zap.String("campaign_id", campaign.ID),
			zap.String("status", string(campaign.Status)),
		)
		return nil
	}

	listings, err := e.providers.Listings.Search(ctx, campaign.Niche, campaign.City, campaign.Limit)
	if err != nil {
		return err
	}

	var inserted, updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.scrapeFanout)
	for _, listing := range listings {
		g.Go(func() error {
			wasInserted, err := e.scrapeLead(gctx, campaign, listing)
			switch {
			case err != nil:
				failed.Add(1)
				zap.L().Error("lead scrape failed",
					zap.String("campaign_id", campaign.ID),
					zap.String("business", listing.Name),
					zap.Error(err),
				)
			case wasInserted:
				inserted.Add(1)
			default:
				updated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := e.store.UpdateCampaignStatus(ctx, campaign.ID, model.CampaignStatusComplete); err != nil {
		return err
	}

	ev, err := model.NewEvent(campaign.ID, nil, model.EventCampaignCompleted, model.CampaignCompletedMeta{
		Found:    len(listings),
		Inserted: int(inserted.Load()),
		Updated:  int(updated.Load()),
		Failed:   int(failed.Load()),
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}

	zap.L().Info("campaign scrape complete",
		zap.String("campaign_id", campaign.ID),
		zap.Int("found", len(listings)),
		zap.Int64("inserted", inserted.Load()),
		zap.Int64("updated", updated.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// scrapeLead persists one listing. Only newly inserted leads advance and
// enqueue enrichment; a re-scraped lead keeps its pipeline position.
func (e *Engine) scrapeLead(ctx context.Context, campaign *model.Campaign, listing provider.BusinessListing) (bool, error) {
	lead := &model.Lead{
		CampaignID:   campaign.ID,
		BusinessName: listing.Name,
		SourceURL:    listing.SourceURL,
	}
	if listing.WebsiteURL != "" {
		lead.WebsiteURL = &listing.WebsiteURL
	}
	if listing.Phone != "" {
		lead.Phone = &listing.Phone
	}
	if listing.Email != "" {
		lead.Email = &listing.Email
	}
	if listing.Address != "" {
		lead.Address = &listing.Address
	}

	stored, inserted, err := e.store.UpsertLead(ctx, lead)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	ev, err := model.NewEvent(campaign.ID, &stored.ID, model.EventLeadScraped, model.LeadScrapedMeta{
		BusinessName: stored.BusinessName,
		WebsiteURL:   listing.WebsiteURL,
		SourceURL:    stored.SourceURL,
	})
	if err != nil {
		return true, err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return true, err
	}
	if err := e.store.UpdateLeadStatus(ctx, stored.ID, model.LeadStatusScraped); err != nil {
		return true, err
	}

	return true, e.broker.Publish(ctx, queue.StageEnrich, model.LeadJob{LeadID: stored.ID})
}
