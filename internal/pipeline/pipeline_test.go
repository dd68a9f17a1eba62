package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

func TestPipelineRunsLeadThroughCalls(t *testing.T) {
	srv := businessSite(t)
	h := newHarness(t, &stubListings{listings: []provider.BusinessListing{
		{
			Name:       "Acme Plumbing",
			WebsiteURL: srv.URL,
			Phone:      "+15125550100",
			Address:    "100 Main St, Austin",
			SourceURL:  "https://maps.test.local/place/acme-plumbing",
		},
	}})
	ctx := context.Background()

	campaign, err := h.engine.StartCampaign(ctx, "plumbers", "Austin", 5)
	require.NoError(t, err)
	h.broker.Wait()

	stored, err := h.store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusComplete, stored.Status)

	leads, err := h.store.ListLeads(ctx, store.LeadFilter{CampaignID: campaign.ID})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	lead := leads[0]
	assert.Equal(t, model.LeadStatusCalled1, lead.Status)
	assert.Equal(t, 1, lead.EmailSentCount)
	assert.Equal(t, 2, lead.CallAttempts)
	require.NotNil(t, lead.Email)
	assert.Equal(t, "office@acmeplumbing.net", *lead.Email)
	require.NotNil(t, lead.DemoURL)
	assert.Contains(t, *lead.DemoURL, ".test.pages.local")
	require.NotNil(t, lead.HeroImageURL)
	assert.NotEmpty(t, lead.ServiceImageURLs)

	assert.Equal(t, 1, h.email.count())
	assert.Equal(t, 2, h.caller.count())
	assert.Contains(t, h.email.sent[0].Body, *lead.DemoURL)

	types := eventTypes(t, h, lead.ID)
	for _, want := range []model.EventType{
		model.EventLeadScraped, model.EventLeadEnriched, model.EventSiteGenerated,
		model.EventImagesReady, model.EventDeployed, model.EventEmailSent, model.EventCallPlaced,
	} {
		assert.Contains(t, types, want)
	}
	assert.Empty(t, h.broker.DeadLetters())
}

func TestPipelineSkipsEmailWithoutAddress(t *testing.T) {
	h := newHarness(t, &stubListings{listings: []provider.BusinessListing{
		{Name: "Walk-In Plumbing", Phone: "+15125550101", SourceURL: "https://maps.test.local/place/walk-in"},
	}})
	ctx := context.Background()

	campaign, err := h.engine.StartCampaign(ctx, "plumbers", "Austin", 5)
	require.NoError(t, err)
	h.broker.Wait()

	leads, err := h.store.ListLeads(ctx, store.LeadFilter{CampaignID: campaign.ID})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	// The email stage is skipped, not the lead: calls still go out.
	lead := leads[0]
	assert.Equal(t, model.LeadStatusCalled1, lead.Status)
	assert.Equal(t, 0, lead.EmailSentCount)
	assert.Equal(t, 2, lead.CallAttempts)
	require.NotNil(t, lead.LastError)
	assert.Contains(t, *lead.LastError, "no email address")
	assert.Zero(t, h.email.count())
	assert.Equal(t, 2, h.caller.count())

	types := eventTypes(t, h, lead.ID)
	assert.Contains(t, types, model.EventLeadSkipped)
	assert.Contains(t, types, model.EventCallPlaced)
	assert.NotContains(t, types, model.EventEmailSent)
	assert.Empty(t, h.broker.DeadLetters())
}

func TestEnrichDegradedRecordsLastError(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()

	t.Run("unreachable website", func(t *testing.T) {
		lead := seedLeadAt(t, h, model.LeadStatusScraped)

		job := mustJob(t, queue.StageEnrich, model.LeadJob{LeadID: lead.ID})
		require.NoError(t, h.engine.handleEnrich(ctx, job))

		stored, err := h.store.GetLead(ctx, lead.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastError)
		assert.Contains(t, *stored.LastError, "unreachable")
	})

	t.Run("no website", func(t *testing.T) {
		campaign, err := h.store.CreateCampaign(ctx, "plumbers", "Austin", 10)
		require.NoError(t, err)
		mail := "desk@walkin.test.local"
		lead, _, err := h.store.UpsertLead(ctx, &model.Lead{
			CampaignID:   campaign.ID,
			BusinessName: "Walk-In Plumbing",
			Email:        &mail,
			SourceURL:    "https://maps.test.local/place/walk-in",
		})
		require.NoError(t, err)
		require.NoError(t, h.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusScraped))

		job := mustJob(t, queue.StageEnrich, model.LeadJob{LeadID: lead.ID})
		require.NoError(t, h.engine.handleEnrich(ctx, job))

		stored, err := h.store.GetLead(ctx, lead.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastError)
		assert.Contains(t, *stored.LastError, "no website")
		assert.GreaterOrEqual(t, model.StatusRank(stored.Status), model.StatusRank(model.LeadStatusEnriched))
	})
}

func TestScrapeCarriesListingEmail(t *testing.T) {
	h := newHarness(t, &stubListings{listings: []provider.BusinessListing{
		{
			Name:      "Walk-In Plumbing",
			Phone:     "+15125550101",
			Email:     "front@walkinplumbing.net",
			SourceURL: "https://maps.test.local/place/walk-in",
		},
	}})
	ctx := context.Background()

	campaign, err := h.engine.StartCampaign(ctx, "plumbers", "Austin", 5)
	require.NoError(t, err)
	h.broker.Wait()

	leads, err := h.store.ListLeads(ctx, store.LeadFilter{CampaignID: campaign.ID})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	// No website to crawl, but the directory listing carried an address.
	lead := leads[0]
	require.NotNil(t, lead.Email)
	assert.Equal(t, "front@walkinplumbing.net", *lead.Email)
	assert.Equal(t, 1, lead.EmailSentCount)
	require.Equal(t, 1, h.email.count())
	assert.Equal(t, "front@walkinplumbing.net", h.email.sent[0].To)
	assert.Equal(t, model.LeadStatusCalled1, lead.Status)
}

func TestDuplicateEmailDeliveryDoesNotResend(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusDeployed)

	job := mustJob(t, queue.StageEmail, model.EmailJob{LeadID: lead.ID, Step: 1})
	require.NoError(t, h.engine.handleEmail(ctx, job))
	require.NoError(t, h.engine.handleEmail(ctx, job))

	assert.Equal(t, 1, h.email.count())
	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EmailSentCount)
	assert.Equal(t, model.LeadStatusEmailed1, stored.Status)
}

func TestEmailReplayAfterCrashSkipsSendButWritesLedger(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusDeployed)

	// Simulate a crash after the send committed but before the ledger writes.
	key := &model.IdempotencyKey{
		Key:        model.EmailKey(lead.ID, 1),
		Stage:      "email",
		CampaignID: lead.CampaignID,
		LeadID:     &lead.ID,
	}
	require.NoError(t, h.store.ClaimIdempotencyKey(ctx, key))
	cached, err := json.Marshal(emailResult{MessageID: "msg-cached", Subject: "s", To: *lead.Email})
	require.NoError(t, err)
	require.NoError(t, h.store.CompleteIdempotencyKey(ctx, key.Key, cached))

	job := mustJob(t, queue.StageEmail, model.EmailJob{LeadID: lead.ID, Step: 1})
	require.NoError(t, h.engine.handleEmail(ctx, job))

	assert.Zero(t, h.email.count())

	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EmailSentCount)
	assert.Equal(t, model.LeadStatusEmailed1, stored.Status)

	ev, err := h.store.LatestEvent(ctx, lead.CampaignID, &lead.ID, model.EventEmailSent)
	require.NoError(t, err)
	require.NotNil(t, ev)
	meta, err := model.DecodeMetadata(ev.Type, ev.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "msg-cached", meta.(*model.EmailSentMeta).MessageID)
}

func TestEmailFailureReleasesClaim(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusDeployed)
	h.email.failN = 1

	job := mustJob(t, queue.StageEmail, model.EmailJob{LeadID: lead.ID, Step: 1})
	require.Error(t, h.engine.handleEmail(ctx, job))

	existing, err := h.store.GetIdempotencyKey(ctx, model.EmailKey(lead.ID, 1))
	require.NoError(t, err)
	assert.Nil(t, existing)

	require.NoError(t, h.engine.handleEmail(ctx, job))
	assert.Equal(t, 1, h.email.count())
}

func TestCallStageOutOfOrderDeliveryFails(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusDeployed)

	job := mustJob(t, queue.StageCall, model.CallJob{LeadID: lead.ID, Attempt: 1})
	err := h.engine.handleCall(ctx, job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected emailed_1")
	assert.Zero(t, h.caller.count())
}

func TestDoNotContactLeadIsSkippedEverywhere(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusEnriched)
	require.NoError(t, h.store.MarkDoNotContact(ctx, lead.ID))

	require.NoError(t, h.engine.handleSite(ctx, mustJob(t, queue.StageSite, model.LeadJob{LeadID: lead.ID})))
	require.NoError(t, h.engine.handleEmail(ctx, mustJob(t, queue.StageEmail, model.EmailJob{LeadID: lead.ID, Step: 1})))
	require.NoError(t, h.engine.handleCall(ctx, mustJob(t, queue.StageCall, model.CallJob{LeadID: lead.ID, Attempt: 1})))

	assert.Zero(t, h.email.count())
	assert.Zero(t, h.caller.count())
	assert.Zero(t, h.deployer.count)

	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusDoNotContact, stored.Status)
}

func TestCallAttemptBeyondCapSkips(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusCalled1)
	require.NoError(t, h.store.IncrementCallAttempts(ctx, lead.ID))
	require.NoError(t, h.store.IncrementCallAttempts(ctx, lead.ID))

	job := mustJob(t, queue.StageCall, model.CallJob{LeadID: lead.ID, Attempt: 3})
	require.NoError(t, h.engine.handleCall(ctx, job))

	assert.Zero(t, h.caller.count())
	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CallAttempts)
	assert.Equal(t, model.LeadStatusCalled1, stored.Status)

	types := eventTypes(t, h, lead.ID)
	assert.Contains(t, types, model.EventLeadSkipped)
	assert.NotContains(t, types, model.EventCallPlaced)
}

func TestDeployDeadLettersThenRequeues(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusImagesReady)
	h.deployer.failN = 10

	require.NoError(t, h.broker.Publish(ctx, queue.StageDeploy, model.LeadJob{LeadID: lead.ID}))
	h.broker.Wait()

	dead := h.broker.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, queue.StageDeploy, dead[0].Job.Stage)
	assert.Contains(t, dead[0].Reason, "deploy api unavailable")

	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusImagesReady, stored.Status)

	h.deployer.mu.Lock()
	h.deployer.failN = 0
	h.deployer.mu.Unlock()

	stage, err := h.engine.RequeueLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StageDeploy, stage)
	h.broker.Wait()

	stored, err = h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DemoURL)
	assert.Equal(t, model.LeadStatusCalled1, stored.Status)
	assert.Equal(t, 1, h.email.count())
	assert.Equal(t, 2, h.caller.count())
}

func TestRequeueLeadRejectsUnrunnableStatus(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusNew)

	_, err := h.engine.RequeueLead(ctx, lead.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no runnable stage")
}

func TestStartCampaignValidates(t *testing.T) {
	h := newHarness(t, &stubListings{})
	_, err := h.engine.StartCampaign(context.Background(), "", "Austin", 5)
	require.Error(t, err)
}

func TestCheckStage(t *testing.T) {
	lead := &model.Lead{ID: "l1", Status: model.LeadStatusEnriched}

	proceed, err := checkStage(lead, model.LeadStatusEnriched)
	require.NoError(t, err)
	assert.True(t, proceed)

	proceed, err = checkStage(lead, model.LeadStatusScraped)
	require.NoError(t, err)
	assert.False(t, proceed)

	_, err = checkStage(lead, model.LeadStatusDeployed)
	require.Error(t, err)
}
