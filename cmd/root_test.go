package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Runs the create command end to end against the simulated providers and the
// in-process broker, then inspects the database it left behind.
func TestCampaignCreateRunsPipelineOffline(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("OUTREACH_STORE_DATABASE_URL", dbPath)
	t.Setenv("OUTREACH_ENRICH_TIMEOUT_SECS", "1")
	t.Setenv("OUTREACH_ENRICH_RATE_PER_SEC", "500")
	t.Setenv("OUTREACH_ENRICH_BURST", "500")
	t.Setenv("OUTREACH_SITE_ARTIFACT_DIR", t.TempDir())
	t.Setenv("OUTREACH_LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"campaign", "create", "--niche", "plumbers", "--city", "Austin", "--limit", "3"})
	require.NoError(t, rootCmd.Execute())

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	campaigns, err := st.ListCampaigns(ctx, store.CampaignFilter{})
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, model.CampaignStatusComplete, campaigns[0].Status)

	leads, err := st.ListLeads(ctx, store.LeadFilter{CampaignID: campaigns[0].ID})
	require.NoError(t, err)
	require.Len(t, leads, 3)

	// Simulated businesses have no reachable site, so no email address is
	// found; the email step is skipped and every lead rides the call stage
	// to its attempt cap.
	for _, lead := range leads {
		assert.Equal(t, model.LeadStatusCalled1, lead.Status)
		assert.Equal(t, 0, lead.EmailSentCount)
		assert.Equal(t, 2, lead.CallAttempts)
		require.NotNil(t, lead.DemoURL)
		require.NotNil(t, lead.LastError)
	}
}

func TestLeadsReleaseClaim(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("OUTREACH_STORE_DATABASE_URL", dbPath)
	t.Setenv("OUTREACH_LOG_LEVEL", "error")

	ctx := context.Background()
	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	campaign, err := st.CreateCampaign(ctx, "plumbers", "Austin", 5)
	require.NoError(t, err)

	orphan := &model.IdempotencyKey{Key: "deploy:lead-1", Stage: "deploy", CampaignID: campaign.ID}
	require.NoError(t, st.ClaimIdempotencyKey(ctx, orphan))

	done := &model.IdempotencyKey{Key: "deploy:lead-2", Stage: "deploy", CampaignID: campaign.ID}
	require.NoError(t, st.ClaimIdempotencyKey(ctx, done))
	require.NoError(t, st.CompleteIdempotencyKey(ctx, done.Key, []byte(`{}`)))
	require.NoError(t, st.Close())

	rootCmd.SetArgs([]string{"leads", "release-claim", "deploy:lead-1"})
	require.NoError(t, rootCmd.Execute())

	// A completed claim is never released; its cached result must keep
	// replaying.
	rootCmd.SetArgs([]string{"leads", "release-claim", "deploy:lead-2"})
	require.Error(t, rootCmd.Execute())

	st, err = store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close()

	gone, err := st.GetIdempotencyKey(ctx, "deploy:lead-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := st.GetIdempotencyKey(ctx, "deploy:lead-2")
	require.NoError(t, err)
	require.NotNil(t, kept)
}
