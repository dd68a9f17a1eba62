package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

type testAPI struct {
	store  store.Store
	broker *queue.MemoryBroker
	srv    *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	broker := queue.NewMemory(queue.MemoryOptions{InitialBackoff: time.Millisecond})
	t.Cleanup(func() { _ = broker.Close() })

	engine := pipeline.New(st, broker, provider.Set{
		Listings:   &provider.SimulatedListings{},
		Copywriter: &provider.SimulatedCopywriter{},
		Images:     &provider.SimulatedImages{},
		Deployer:   &provider.SimulatedDeployer{},
		Email:      &provider.SimulatedEmail{},
		Caller:     &provider.SimulatedCaller{},
	}, pipeline.Options{Site: config.SiteConfig{ArtifactDir: t.TempDir()}})

	srv := httptest.NewServer(NewServer(st, engine, broker).Router())
	t.Cleanup(srv.Close)

	return &testAPI{store: st, broker: broker, srv: srv}
}

func (a *testAPI) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func (a *testAPI) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(a.srv.URL + path)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	resp.Body.Close()
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func seedLead(t *testing.T, st store.Store, status model.LeadStatus) *model.Lead {
	t.Helper()
	ctx := context.Background()
	campaign, err := st.CreateCampaign(ctx, "plumbers", "Austin", 10)
	require.NoError(t, err)

	phone := "+15125550175"
	lead, _, err := st.UpsertLead(ctx, &model.Lead{
		CampaignID:   campaign.ID,
		BusinessName: "Acme Plumbing",
		Phone:        &phone,
		SourceURL:    "https://maps.test.local/place/acme",
	})
	require.NoError(t, err)
	for rank := 1; rank <= model.StatusRank(status); rank++ {
		require.NoError(t, st.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusAtRank(rank)))
	}
	return lead
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	var body map[string]string
	resp := a.getJSON(t, "/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateAndGetCampaign(t *testing.T) {
	a := newTestAPI(t)

	resp := a.postJSON(t, "/campaigns", map[string]any{"niche": "plumbers", "city": "Austin", "limit": 5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[model.Campaign](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.CampaignStatusCreated, created.Status)

	var got model.Campaign
	resp = a.getJSON(t, "/campaigns/"+created.ID, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, got.ID)

	var all []model.Campaign
	a.getJSON(t, "/campaigns", &all)
	assert.Len(t, all, 1)

	// The scrape job was enqueued for the worker.
	assert.Equal(t, 1, a.broker.Depth(queue.StageScrape))
}

func TestCreateCampaignValidation(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/campaigns", map[string]any{"city": "Austin"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCampaignNotFound(t *testing.T) {
	a := newTestAPI(t)
	resp := a.getJSON(t, "/campaigns/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLeadEndpoints(t *testing.T) {
	a := newTestAPI(t)
	lead := seedLead(t, a.store, model.LeadStatusScraped)

	var got model.Lead
	resp := a.getJSON(t, "/leads/"+lead.ID, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lead.ID, got.ID)
	assert.Equal(t, model.LeadStatusScraped, got.Status)

	var leads []model.Lead
	a.getJSON(t, "/campaigns/"+lead.CampaignID+"/leads", &leads)
	assert.Len(t, leads, 1)
}

func TestRequeueLead(t *testing.T) {
	a := newTestAPI(t)
	lead := seedLead(t, a.store, model.LeadStatusScraped)

	resp := a.postJSON(t, "/leads/"+lead.ID+"/requeue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "enrich", body["stage"])
	assert.Equal(t, 1, a.broker.Depth(queue.StageEnrich))
}

func TestRequeueLeadConflicts(t *testing.T) {
	a := newTestAPI(t)
	lead := seedLead(t, a.store, model.LeadStatusNew)

	resp := a.postJSON(t, "/leads/"+lead.ID+"/requeue", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	a := newTestAPI(t)
	seedLead(t, a.store, model.LeadStatusDeployed)

	var snap map[string]any
	resp := a.getJSON(t, "/metrics", &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, snap["total_leads"])
}

func TestDeadLettersEmpty(t *testing.T) {
	a := newTestAPI(t)
	var dead []queue.DeadLetter
	resp := a.getJSON(t, "/deadletters", &dead)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, dead)
}

func TestCallWebhookOptOut(t *testing.T) {
	a := newTestAPI(t)
	lead := seedLead(t, a.store, model.LeadStatusCalled1)

	resp := a.postJSON(t, "/webhooks/calls/vapi", pipeline.CallWebhook{
		CallID:     "call-1",
		LeadID:     lead.ID,
		Status:     "completed",
		Transcript: "please remove me from your list",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "vapi", body["provider"])
	assert.Equal(t, true, body["opt_out_applied"])

	got, err := a.store.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.True(t, got.DoNotContact)
	assert.Equal(t, model.LeadStatusDoNotContact, got.Status)
}

func TestCallWebhookCampaignOnly(t *testing.T) {
	a := newTestAPI(t)
	lead := seedLead(t, a.store, model.LeadStatusCalled1)

	resp := a.postJSON(t, "/webhooks/calls/vapi", pipeline.CallWebhook{
		CallID:     "call-7",
		CampaignID: lead.CampaignID,
		Status:     "completed",
		Transcript: "wrong number",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["opt_out_applied"])

	events, err := a.store.ListEvents(context.Background(), store.EventFilter{CampaignID: lead.CampaignID})
	require.NoError(t, err)
	found := false
	for _, ev := range events {
		if ev.Type == model.EventCallResult && ev.LeadID == nil {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCallWebhookMissingCorrelation(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/webhooks/calls/vapi", pipeline.CallWebhook{CallID: "call-1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallWebhookUnknownLead(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/webhooks/calls/vapi", pipeline.CallWebhook{
		CallID: "call-1",
		LeadID: "no-such-lead",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallWebhookBadBody(t *testing.T) {
	a := newTestAPI(t)
	resp, err := http.Post(a.srv.URL+"/webhooks/calls/vapi", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
