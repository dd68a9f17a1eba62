package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/queue"
)

// handleEnrich crawls the lead's website and records what it found. A lead
// without a website, or with an unreachable one, still advances: the demo
// site falls back to niche defaults.
func (e *Engine) handleEnrich(ctx context.Context, job queue.Job) error {
	var payload model.LeadJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	lead, err := e.store.GetLead(ctx, payload.LeadID)
	if err != nil {
		return err
	}
	if lead.DoNotContact {
		return e.skipLead(ctx, lead, "enrich", "do not contact")
	}
	proceed, err := checkStage(lead, model.LeadStatusScraped)
	if err != nil || !proceed {
		return err
	}

	var pages []enrich.Page
	if lead.WebsiteURL != nil {
		pages = e.fetcher.FetchSite(ctx, *lead.WebsiteURL)
	}
	data := enrich.Extract(pages)

	if reason := degradedEnrichment(lead, pages, data); reason != "" {
		if err := e.store.SetLeadError(ctx, lead.ID, reason); err != nil {
			return err
		}
	}

	if data.Phone != nil || data.Email != nil {
		if err := e.store.SetLeadContact(ctx, lead.ID, data.Phone, data.Email); err != nil {
			return err
		}
	}

	meta := model.LeadEnrichedMeta{
		ServiceKeywords: data.ServiceKeywords,
		Claims:          data.Claims,
	}
	if data.Phone != nil {
		meta.Phone = *data.Phone
	}
	if data.Email != nil {
		meta.Email = *data.Email
	}
	for _, p := range pages {
		meta.PagesVisited = append(meta.PagesVisited, p.Path)
	}

	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventLeadEnriched, meta)
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	if err := e.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusEnriched); err != nil {
		return err
	}

	zap.L().Info("lead enriched",
		zap.String("lead_id", lead.ID),
		zap.Int("pages", len(pages)),
		zap.Int("keywords", len(data.ServiceKeywords)),
	)
	return e.broker.Publish(ctx, queue.StageSite, model.LeadJob{LeadID: lead.ID})
}

// degradedEnrichment names why an enrichment produced nothing usable. The
// lead still advances; the reason lands in lastError for operators.
func degradedEnrichment(lead *model.Lead, pages []enrich.Page, data enrich.Data) string {
	switch {
	case lead.WebsiteURL == nil:
		return "no website to enrich"
	case len(pages) == 0:
		return "website unreachable"
	case len(data.ServiceKeywords) == 0 && len(data.Claims) == 0:
		return "no service content extracted"
	}
	return ""
}
