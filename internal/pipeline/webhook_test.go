package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

func TestWebhookOptOutMarksDoNotContact(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusCalled1)

	res, err := h.engine.IngestCallWebhook(ctx, "vapi", CallWebhook{
		CallID:     "call-1",
		LeadID:     lead.ID,
		Status:     "completed",
		Transcript: "Not interested, please REMOVE ME from your list.",
	})
	require.NoError(t, err)
	assert.True(t, res.OptOutApplied)
	assert.Equal(t, "vapi", res.Provider)

	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, stored.DoNotContact)
	assert.Equal(t, model.LeadStatusDoNotContact, stored.Status)

	ev, err := h.store.LatestEvent(ctx, lead.CampaignID, &lead.ID, model.EventCallResult)
	require.NoError(t, err)
	require.NotNil(t, ev)
	meta, err := model.DecodeMetadata(ev.Type, ev.Metadata)
	require.NoError(t, err)
	result := meta.(*model.CallResultMeta)
	assert.True(t, result.OptOut)
	assert.Equal(t, "vapi", result.Provider)

	// The next call attempt sees the flag and skips.
	job := mustJob(t, queue.StageCall, model.CallJob{LeadID: lead.ID, Attempt: 2})
	require.NoError(t, h.engine.handleCall(ctx, job))
	assert.Zero(t, h.caller.count())
}

func TestWebhookOptOutPhrases(t *testing.T) {
	cases := map[string]bool{
		"please do not call me again":      true,
		"STOP CALLING this number":         true,
		"I want to opt out":                true,
		"unsubscribe me from everything":   true,
		"sounds interesting, tell me more": false,
		"":                                 false,
	}
	for transcript, want := range cases {
		assert.Equal(t, want, transcriptOptsOut(transcript), "transcript: %q", transcript)
	}
}

func TestWebhookReplyAdvancesLead(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusCalled1)

	res, err := h.engine.IngestCallWebhook(ctx, "vapi", CallWebhook{
		CallID:     "call-1",
		LeadID:     lead.ID,
		Status:     "answered",
		Transcript: "Sure, send me the details.",
		Interested: true,
	})
	require.NoError(t, err)
	assert.False(t, res.OptOutApplied)

	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, stored.Status)
	assert.True(t, stored.Interested)
	assert.False(t, stored.Booked)
}

func TestWebhookBookedAdvancesToBooked(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()
	lead := seedLeadAt(t, h, model.LeadStatusCalled1)

	_, err := h.engine.IngestCallWebhook(ctx, "vapi", CallWebhook{
		CallID:     "call-1",
		LeadID:     lead.ID,
		Status:     "answered",
		Transcript: "Yes, book me in for Tuesday.",
		Interested: true,
		Booked:     true,
	})
	require.NoError(t, err)

	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusBooked, stored.Status)
	assert.True(t, stored.Booked)
}

func TestWebhookMissingCorrelation(t *testing.T) {
	h := newHarness(t, &stubListings{})
	_, err := h.engine.IngestCallWebhook(context.Background(), "vapi", CallWebhook{CallID: "call-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCorrelation))
}

func TestWebhookUnknownLead(t *testing.T) {
	h := newHarness(t, &stubListings{})
	_, err := h.engine.IngestCallWebhook(context.Background(), "vapi", CallWebhook{
		CallID: "call-1",
		LeadID: "no-such-lead",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestWebhookCampaignOnlyRecordsEvent(t *testing.T) {
	h := newHarness(t, &stubListings{})
	ctx := context.Background()

	campaign, err := h.store.CreateCampaign(ctx, "plumbers", "Austin", 10)
	require.NoError(t, err)

	res, err := h.engine.IngestCallWebhook(ctx, "vapi", CallWebhook{
		CallID:     "call-9",
		CampaignID: campaign.ID,
		Status:     "completed",
		Transcript: "wrong number",
	})
	require.NoError(t, err)
	assert.False(t, res.OptOutApplied)
	assert.Equal(t, "vapi", res.Provider)

	ev, err := h.store.LatestEvent(ctx, campaign.ID, nil, model.EventCallResult)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Nil(t, ev.LeadID)
	meta, err := model.DecodeMetadata(ev.Type, ev.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "call-9", meta.(*model.CallResultMeta).CallID)
}

func TestWebhookUnknownCampaign(t *testing.T) {
	h := newHarness(t, &stubListings{})
	_, err := h.engine.IngestCallWebhook(context.Background(), "vapi", CallWebhook{
		CallID:     "call-1",
		CampaignID: "no-such-campaign",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
