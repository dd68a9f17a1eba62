package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

type stubListings struct {
	listings []provider.BusinessListing
}

func (s *stubListings) Search(ctx context.Context, niche, city string, limit int) ([]provider.BusinessListing, error) {
	if limit < len(s.listings) {
		return s.listings[:limit], nil
	}
	return s.listings, nil
}

type countingEmail struct {
	mu    sync.Mutex
	sent  []provider.EmailMessage
	failN int
}

func (c *countingEmail) SendEmail(ctx context.Context, msg provider.EmailMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failN > 0 {
		c.failN--
		return "", eris.New("smtp unavailable")
	}
	c.sent = append(c.sent, msg)
	return fmt.Sprintf("msg-%d", len(c.sent)), nil
}

func (c *countingEmail) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type countingCaller struct {
	mu    sync.Mutex
	calls []provider.OutboundCall
}

func (c *countingCaller) PlaceCall(ctx context.Context, call provider.OutboundCall) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return fmt.Sprintf("call-%d", len(c.calls)), nil
}

func (c *countingCaller) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type flakyDeployer struct {
	mu    sync.Mutex
	failN int
	count int
}

func (d *flakyDeployer) DeploySite(ctx context.Context, project string, files map[string][]byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failN > 0 {
		d.failN--
		return "", eris.New("deploy api unavailable")
	}
	d.count++
	return "https://" + project + ".test.pages.local", nil
}

type harness struct {
	engine   *Engine
	store    store.Store
	broker   *queue.MemoryBroker
	email    *countingEmail
	caller   *countingCaller
	deployer *flakyDeployer
}

func newHarness(t *testing.T, listings provider.Listings) *harness {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	broker := queue.NewMemory(queue.MemoryOptions{
		MaxAttempts:    3,
		InitialBackoff: 5 * time.Millisecond,
	})
	email := &countingEmail{}
	caller := &countingCaller{}
	deployer := &flakyDeployer{}

	eng := New(st, broker, provider.Set{
		Listings:   listings,
		Copywriter: &provider.SimulatedCopywriter{},
		Images:     &provider.SimulatedImages{},
		Deployer:   deployer,
		Email:      email,
		Caller:     caller,
	}, Options{
		Enrich:    config.EnrichConfig{TimeoutSecs: 2, RatePerSec: 500, Burst: 500},
		Site:      config.SiteConfig{ArtifactDir: t.TempDir()},
		CallDelay: 5 * time.Millisecond,
	})
	eng.Register()
	require.NoError(t, broker.Start(context.Background()))
	t.Cleanup(func() { _ = broker.Close() })

	return &harness{engine: eng, store: st, broker: broker, email: email, caller: caller, deployer: deployer}
}

// businessSite serves a small business homepage for the enrichment crawler.
func businessSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1>Emergency plumbing repair and drain cleaning</h1>
			<p>Licensed and insured, serving the area for over 20 years.</p>
			<p>Call (512) 555-0175 or email office@acmeplumbing.net for a free estimate.</p>
		</body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// seedLeadAt inserts a lead and walks it forward to the given status.
func seedLeadAt(t *testing.T, h *harness, status model.LeadStatus) *model.Lead {
	t.Helper()
	ctx := context.Background()

	campaign, err := h.store.CreateCampaign(ctx, "plumbers", "Austin", 10)
	require.NoError(t, err)

	site := "https://acme-plumbing.test.local"
	phone := "+15125550175"
	mail := "office@acmeplumbing.net"
	lead, _, err := h.store.UpsertLead(ctx, &model.Lead{
		CampaignID:   campaign.ID,
		BusinessName: "Acme Plumbing",
		WebsiteURL:   &site,
		Phone:        &phone,
		Email:        &mail,
		SourceURL:    "https://maps.test.local/place/acme-plumbing",
	})
	require.NoError(t, err)

	for rank := 1; rank <= model.StatusRank(status); rank++ {
		require.NoError(t, h.store.UpdateLeadStatus(ctx, lead.ID, model.LeadStatusAtRank(rank)))
	}
	stored, err := h.store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	return stored
}

func mustJob(t *testing.T, stage queue.Stage, payload any) queue.Job {
	t.Helper()
	job, err := queue.NewJob(stage, payload)
	require.NoError(t, err)
	return job
}

func eventTypes(t *testing.T, h *harness, leadID string) []model.EventType {
	t.Helper()
	events, err := h.store.ListEvents(context.Background(), store.EventFilter{LeadID: leadID})
	require.NoError(t, err)
	out := make([]model.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}
