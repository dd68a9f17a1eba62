// Package pipeline orchestrates the outreach stages. Each stage consumes one
// work queue, writes its results through the store, and only then enqueues
// the next stage, so a crash never skips a lead forward.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/imagepool"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Engine wires the stage handlers to their queues.
type Engine struct {
	store     store.Store
	broker    queue.Broker
	providers provider.Set
	fetcher   *enrich.Fetcher
	images    *imagepool.Pool

	callDelay       time.Duration
	maxCallAttempts int
	scrapeFanout    int
	artifactDir     string
}

// Options tune engine behavior; zero values take pipeline defaults.
type Options struct {
	Pipeline config.PipelineConfig
	Enrich   config.EnrichConfig
	Site     config.SiteConfig
	Images   config.ImagesConfig

	// CallDelay overrides Pipeline.CallDelayMins when set.
	CallDelay time.Duration
}

// New creates an engine. Call Register before starting the broker.
func New(st store.Store, broker queue.Broker, providers provider.Set, opts Options) *Engine {
	callDelay := opts.CallDelay
	if callDelay <= 0 {
		callDelay = time.Duration(opts.Pipeline.CallDelayMins) * time.Minute
	}
	if callDelay <= 0 {
		callDelay = 30 * time.Minute
	}
	maxCalls := opts.Pipeline.MaxCallAttempts
	if maxCalls <= 0 {
		maxCalls = 2
	}
	fanout := opts.Pipeline.ScrapeFanout
	if fanout <= 0 {
		fanout = 5
	}
	artifactDir := opts.Site.ArtifactDir
	if artifactDir == "" {
		artifactDir = "artifacts"
	}

	return &Engine{
		store:     st,
		broker:    broker,
		providers: providers,
		fetcher: enrich.NewFetcher(enrich.FetcherOptions{
			Timeout:    time.Duration(opts.Enrich.TimeoutSecs) * time.Second,
			RatePerSec: opts.Enrich.RatePerSec,
			Burst:      opts.Enrich.Burst,
			MaxBodyKB:  opts.Enrich.MaxBodyKB,
		}),
		images:          imagepool.New(opts.Images.PoolSize),
		callDelay:       callDelay,
		maxCallAttempts: maxCalls,
		scrapeFanout:    fanout,
		artifactDir:     artifactDir,
	}
}

// Register subscribes every stage handler on the broker.
func (e *Engine) Register() {
	e.broker.Subscribe(queue.StageScrape, e.handleScrape)
	e.broker.Subscribe(queue.StageEnrich, e.handleEnrich)
	e.broker.Subscribe(queue.StageSite, e.handleSite)
	e.broker.Subscribe(queue.StageImages, e.handleImages)
	e.broker.Subscribe(queue.StageDeploy, e.handleDeploy)
	e.broker.Subscribe(queue.StageEmail, e.handleEmail)
	e.broker.Subscribe(queue.StageCall, e.handleCall)
}

// StartCampaign creates a campaign and enqueues its scrape job.
func (e *Engine) StartCampaign(ctx context.Context, niche, city string, limit int) (*model.Campaign, error) {
	if niche == "" || city == "" {
		return nil, eris.New("pipeline: niche and city are required")
	}
	if limit <= 0 {
		limit = 20
	}

	campaign, err := e.store.CreateCampaign(ctx, niche, city, limit)
	if err != nil {
		return nil, err
	}

	ev, err := model.NewEvent(campaign.ID, nil, model.EventCampaignCreated, model.CampaignCreatedMeta{
		Niche: niche,
		City:  city,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return nil, err
	}

	if err := e.broker.Publish(ctx, queue.StageScrape, model.ScrapeJob{CampaignID: campaign.ID}); err != nil {
		return nil, err
	}

	zap.L().Info("campaign started",
		zap.String("campaign_id", campaign.ID),
		zap.String("niche", niche),
		zap.String("city", city),
		zap.Int("limit", limit),
	)
	return campaign, nil
}

// RequeueLead re-enqueues a lead at the stage matching its current status.
// Used to recover dead-lettered leads after the underlying fault is fixed.
func (e *Engine) RequeueLead(ctx context.Context, leadID string) (queue.Stage, error) {
	lead, err := e.store.GetLead(ctx, leadID)
	if err != nil {
		return "", err
	}

	var stage queue.Stage
	var payload any
	switch lead.Status {
	case model.LeadStatusScraped:
		stage, payload = queue.StageEnrich, model.LeadJob{LeadID: lead.ID}
	case model.LeadStatusEnriched:
		stage, payload = queue.StageSite, model.LeadJob{LeadID: lead.ID}
	case model.LeadStatusSiteGenerated:
		stage, payload = queue.StageImages, model.LeadJob{LeadID: lead.ID}
	case model.LeadStatusImagesReady:
		stage, payload = queue.StageDeploy, model.LeadJob{LeadID: lead.ID}
	case model.LeadStatusDeployed:
		stage, payload = queue.StageEmail, model.EmailJob{LeadID: lead.ID, Step: lead.EmailSentCount + 1}
	case model.LeadStatusEmailed1:
		stage, payload = queue.StageCall, model.CallJob{LeadID: lead.ID, Attempt: lead.CallAttempts + 1}
	default:
		return "", eris.Errorf("pipeline: lead %s has no runnable stage in status %s", leadID, lead.Status)
	}

	if err := e.broker.Publish(ctx, stage, payload); err != nil {
		return "", err
	}
	return stage, nil
}

// skipLead records a policy skip as an event and a log line. Skips are
// successful deliveries, not failures.
func (e *Engine) skipLead(ctx context.Context, lead *model.Lead, stage, reason string) error {
	ev, err := model.NewEvent(lead.CampaignID, &lead.ID, model.EventLeadSkipped, model.LeadSkippedMeta{
		Stage:  stage,
		Reason: reason,
	})
	if err != nil {
		return err
	}
	if _, err := e.store.AppendEvent(ctx, ev); err != nil {
		return err
	}
	zap.L().Info("lead skipped",
		zap.String("lead_id", lead.ID),
		zap.String("stage", stage),
		zap.String("reason", reason),
	)
	return nil
}

// checkStage verifies a lead sits at the stage's expected status. A lead
// already past it signals a duplicate delivery, which is acknowledged
// without work. A lead behind it is a hard error: the job arrived out of
// order and must not run.
func checkStage(lead *model.Lead, expected model.LeadStatus) (proceed bool, err error) {
	if lead.Status == expected {
		return true, nil
	}
	if model.StatusRank(lead.Status) > model.StatusRank(expected) {
		zap.L().Debug("duplicate delivery, lead already past stage",
			zap.String("lead_id", lead.ID),
			zap.String("status", string(lead.Status)),
			zap.String("expected", string(expected)),
		)
		return false, nil
	}
	return false, eris.Errorf("pipeline: lead %s is %s, expected %s", lead.ID, lead.Status, expected)
}
