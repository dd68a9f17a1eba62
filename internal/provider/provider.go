// Package provider defines the external capabilities the pipeline depends on
// and assembles either simulated or production implementations per capability.
package provider

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/config"
)

// BusinessListing is one business found by the listings search. Email is
// rarely present in directory data; enrichment fills it from the website
// when the listing leaves it empty.
type BusinessListing struct {
	Name       string
	WebsiteURL string
	Phone      string
	Email      string
	Address    string
	SourceURL  string
}

// Listings finds local businesses for a niche and city.
type Listings interface {
	Search(ctx context.Context, niche, city string, limit int) ([]BusinessListing, error)
}

// CopyRequest carries the lead context the copywriter personalizes against.
type CopyRequest struct {
	BusinessName    string
	Niche           string
	City            string
	ServiceKeywords []string
	Claims          []string
	DemoURL         string
}

// SiteCopy is generated demo-site text.
type SiteCopy struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// EmailCopy is one generated outreach email.
type EmailCopy struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Copywriter produces site, email, and call copy.
type Copywriter interface {
	SiteCopy(ctx context.Context, req CopyRequest) (*SiteCopy, error)
	EmailCopy(ctx context.Context, req CopyRequest, step int) (*EmailCopy, error)
	CallScript(ctx context.Context, req CopyRequest) (string, error)
}

// ImageGenerator renders one image per prompt and returns its hosted URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Deployer publishes a site bundle and returns its public URL.
type Deployer interface {
	DeploySite(ctx context.Context, project string, files map[string][]byte) (string, error)
}

// EmailMessage is one outbound email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// EmailSender delivers email and returns a provider message ID.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// OutboundCall describes a call to place.
type OutboundCall struct {
	PhoneNumber string
	Script      string
	LeadID      string
}

// Caller places outbound calls and returns a provider call ID. Outcomes
// arrive separately through the call webhook.
type Caller interface {
	PlaceCall(ctx context.Context, call OutboundCall) (string, error)
}

// Set bundles one implementation per capability.
type Set struct {
	Listings   Listings
	Copywriter Copywriter
	Images     ImageGenerator
	Deployer   Deployer
	Email      EmailSender
	Caller     Caller
}

// FromConfig assembles a Set, choosing simulated or production per capability
// from the providers config.
func FromConfig(cfg config.Config) Set {
	set := Set{}

	if cfg.Providers.ModeFor("listings") == "production" {
		set.Listings = newRealListings(cfg.Places)
	} else {
		set.Listings = &SimulatedListings{}
	}

	if cfg.Providers.ModeFor("copy") == "production" {
		set.Copywriter = newRealCopywriter(cfg.Anthropic)
	} else {
		set.Copywriter = &SimulatedCopywriter{}
	}

	if cfg.Providers.ModeFor("images") == "production" {
		set.Images = newRealImages(cfg.Images)
	} else {
		set.Images = &SimulatedImages{}
	}

	if cfg.Providers.ModeFor("deploy") == "production" {
		set.Deployer = newRealDeployer(cfg.Deploy)
	} else {
		set.Deployer = &SimulatedDeployer{}
	}

	if cfg.Providers.ModeFor("email") == "production" {
		set.Email = newRealEmail(cfg.Email)
	} else {
		set.Email = &SimulatedEmail{}
	}

	if cfg.Providers.ModeFor("call") == "production" {
		set.Caller = newRealCaller(cfg.Call)
	} else {
		set.Caller = &SimulatedCaller{}
	}

	return set
}
