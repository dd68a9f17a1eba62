package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Simulated providers are deterministic and offline. They let the full
// pipeline run end to end in development and in tests without credentials
// or spend.

// SimulatedListings fabricates plausible businesses from the niche and city.
type SimulatedListings struct{}

var simulatedNamePrefixes = []string{
	"Ace", "Summit", "Premier", "Reliable", "Golden", "Metro", "Allstar", "Blue Sky",
}

func (s *SimulatedListings) Search(ctx context.Context, niche, city string, limit int) ([]BusinessListing, error) {
	if limit <= 0 || limit > len(simulatedNamePrefixes) {
		limit = len(simulatedNamePrefixes)
	}

	singular := strings.TrimSuffix(strings.TrimSpace(niche), "s")
	out := make([]BusinessListing, 0, limit)
	for i := 0; i < limit; i++ {
		name := fmt.Sprintf("%s %s", simulatedNamePrefixes[i], titleWords(singular))
		slug := slugify(name)
		listing := BusinessListing{
			Name:      name,
			Address:   fmt.Sprintf("%d Main St, %s", 100+i, city),
			SourceURL: fmt.Sprintf("https://maps.simulated.local/place/%s", slug),
		}
		// Every third business has no website, exercising the no-site path.
		if i%3 != 2 {
			listing.WebsiteURL = fmt.Sprintf("https://%s.simulated.local", slug)
		}
		if i%4 != 3 {
			listing.Phone = fmt.Sprintf("+1512555%04d", stableHash(slug)%10000)
		}
		out = append(out, listing)
	}
	return out, nil
}

// SimulatedCopywriter fills templates instead of calling a model.
type SimulatedCopywriter struct{}

func (s *SimulatedCopywriter) SiteCopy(ctx context.Context, req CopyRequest) (*SiteCopy, error) {
	headline := fmt.Sprintf("%s: %s You Can Count On in %s", req.BusinessName, titleWords(req.Niche), req.City)
	summary := fmt.Sprintf("Serving %s with dependable %s service.", req.City, strings.ToLower(req.Niche))
	if len(req.Claims) > 0 {
		summary += " " + req.Claims[0] + "."
	}
	return &SiteCopy{Headline: headline, Summary: summary}, nil
}

func (s *SimulatedCopywriter) EmailCopy(ctx context.Context, req CopyRequest, step int) (*EmailCopy, error) {
	return &EmailCopy{
		Subject: fmt.Sprintf("A new website for %s", req.BusinessName),
		Body: fmt.Sprintf(
			"Hi %s team,\n\nWe built a demo website for your %s business in %s. Take a look: %s\n\nBest,\nThe Outreach Team",
			req.BusinessName, strings.ToLower(req.Niche), req.City, req.DemoURL,
		),
	}, nil
}

func (s *SimulatedCopywriter) CallScript(ctx context.Context, req CopyRequest) (string, error) {
	return fmt.Sprintf(
		"Hi, I'm calling for %s. We emailed you a demo website we built for your %s business: %s. Would you like a quick walkthrough?",
		req.BusinessName, strings.ToLower(req.Niche), req.DemoURL,
	), nil
}

// SimulatedImages returns stable placeholder URLs so the image pool behaves
// the same as with a real generator.
type SimulatedImages struct{}

func (s *SimulatedImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return fmt.Sprintf("https://img.simulated.local/%08x.png", stableHash(prompt)), nil
}

// SimulatedDeployer mints a demo URL without uploading anything.
type SimulatedDeployer struct{}

func (s *SimulatedDeployer) DeploySite(ctx context.Context, project string, files map[string][]byte) (string, error) {
	zap.L().Debug("simulated deploy", zap.String("project", project), zap.Int("files", len(files)))
	return fmt.Sprintf("https://%s.simulated.pages.local", project), nil
}

// SimulatedEmail logs the message and mints an ID.
type SimulatedEmail struct{}

func (s *SimulatedEmail) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	id := uuid.New().String()
	zap.L().Info("simulated email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("message_id", id),
	)
	return id, nil
}

// SimulatedCaller logs the call and mints an ID.
type SimulatedCaller struct{}

func (s *SimulatedCaller) PlaceCall(ctx context.Context, call OutboundCall) (string, error) {
	id := uuid.New().String()
	zap.L().Info("simulated call placed",
		zap.String("to", call.PhoneNumber),
		zap.String("lead_id", call.LeadID),
		zap.String("call_id", id),
	)
	return id, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	return s
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func stableHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
