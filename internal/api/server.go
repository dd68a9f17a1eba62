// Package api exposes the pipeline over HTTP: campaign management, lead
// inspection, funnel metrics, and the call-provider webhook.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/monitoring"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Server routes HTTP requests to the engine and store.
type Server struct {
	store     store.Store
	engine    *pipeline.Engine
	broker    queue.Broker
	collector *monitoring.Collector
}

// NewServer creates an API server.
func NewServer(st store.Store, engine *pipeline.Engine, broker queue.Broker) *Server {
	return &Server{
		store:     st,
		engine:    engine,
		broker:    broker,
		collector: monitoring.NewCollector(st, broker),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/campaigns", s.handleCreateCampaign)
	r.Get("/campaigns", s.handleListCampaigns)
	r.Get("/campaigns/{id}", s.handleGetCampaign)
	r.Get("/campaigns/{id}/leads", s.handleListCampaignLeads)
	r.Get("/campaigns/{id}/events", s.handleListCampaignEvents)

	r.Get("/leads/{id}", s.handleGetLead)
	r.Get("/leads/{id}/events", s.handleListLeadEvents)
	r.Post("/leads/{id}/requeue", s.handleRequeueLead)

	r.Get("/metrics", s.handleMetrics)
	r.Get("/deadletters", s.handleDeadLetters)

	r.Post("/webhooks/calls/{provider}", s.handleCallWebhook)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Niche string `json:"niche"`
		City  string `json:"city"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Niche == "" || req.City == "" {
		respondError(w, http.StatusBadRequest, "niche and city are required")
		return
	}

	campaign, err := s.engine.StartCampaign(r.Context(), req.Niche, req.City, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusCreated, campaign)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context(), store.CampaignFilter{})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, campaigns)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.store.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respond(w, http.StatusOK, campaign)
}

func (s *Server) handleListCampaignLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.ListLeads(r.Context(), store.LeadFilter{
		CampaignID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, leads)
}

func (s *Server) handleListCampaignEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(r.Context(), store.EventFilter{
		CampaignID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, events)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respond(w, http.StatusOK, lead)
}

func (s *Server) handleListLeadEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(r.Context(), store.EventFilter{
		LeadID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, events)
}

func (s *Server) handleRequeueLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stage, err := s.engine.RequeueLead(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "lead not found")
			return
		}
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	zap.L().Info("lead requeued via api",
		zap.String("lead_id", id),
		zap.String("stage", string(stage)),
	)
	respond(w, http.StatusOK, map[string]string{"lead_id": id, "stage": string(stage)})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context(), r.URL.Query().Get("campaign_id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, snap)
}

func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	dead := s.broker.DeadLetters()
	if dead == nil {
		dead = []queue.DeadLetter{}
	}
	respond(w, http.StatusOK, dead)
}

func (s *Server) handleCallWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	var payload pipeline.CallWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.engine.IngestCallWebhook(r.Context(), providerName, payload)
	switch {
	case err == nil:
		respond(w, http.StatusOK, map[string]any{
			"ok":              true,
			"provider":        result.Provider,
			"opt_out_applied": result.OptOutApplied,
		})
	case errors.Is(err, pipeline.ErrMissingCorrelation):
		respondError(w, http.StatusBadRequest, "lead_id or campaign_id is required")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "unknown lead or campaign")
	default:
		zap.L().Error("webhook ingestion failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
