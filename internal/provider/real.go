package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/gomail.v2"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/imagegen"
	"github.com/sells-group/outreach-cli/pkg/pages"
	"github.com/sells-group/outreach-cli/pkg/places"
	"github.com/sells-group/outreach-cli/pkg/voice"
)

// realListings backs the listings capability with the Places API.
type realListings struct {
	client places.Client
	retry  resilience.RetryConfig
}

func newRealListings(cfg config.PlacesConfig) *realListings {
	var opts []places.Option
	if cfg.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.BaseURL))
	}
	return &realListings{
		client: places.NewClient(cfg.Key, opts...),
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (r *realListings) Search(ctx context.Context, niche, city string, limit int) ([]BusinessListing, error) {
	query := fmt.Sprintf("%s in %s", niche, city)
	resp, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*places.TextSearchResponse, error) {
		return r.client.TextSearch(ctx, query, limit)
	})
	if err != nil {
		return nil, eris.Wrap(err, "provider: listings search")
	}

	out := make([]BusinessListing, 0, len(resp.Places))
	for _, p := range resp.Places {
		out = append(out, BusinessListing{
			Name:       p.DisplayName.Text,
			WebsiteURL: p.WebsiteURI,
			Phone:      p.NationalPhoneNumber,
			Address:    p.FormattedAddress,
			SourceURL:  p.GoogleMapsURI,
		})
	}
	return out, nil
}

// realCopywriter generates copy with the Anthropic API.
type realCopywriter struct {
	client sdk.Client
	model  string
}

func newRealCopywriter(cfg config.AnthropicConfig) *realCopywriter {
	return &realCopywriter{
		client: sdk.NewClient(option.WithAPIKey(cfg.Key)),
		model:  cfg.Model,
	}
}

const siteCopyPrompt = `Write website copy for a local business. Respond with only a JSON object:
{"headline": "...", "summary": "..."}

Business: %s
Trade: %s in %s
Known services: %s
Credibility claims: %s

The headline is short and benefit-led. The summary is two sentences.`

func (r *realCopywriter) SiteCopy(ctx context.Context, req CopyRequest) (*SiteCopy, error) {
	prompt := fmt.Sprintf(siteCopyPrompt,
		req.BusinessName, req.Niche, req.City,
		strings.Join(req.ServiceKeywords, ", "),
		strings.Join(req.Claims, "; "),
	)
	raw, err := r.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out SiteCopy
	if err := json.Unmarshal(extractJSON(raw), &out); err != nil {
		return nil, eris.Wrap(err, "provider: parse site copy")
	}
	return &out, nil
}

const emailCopyPrompt = `Write outreach email number %d to a local business owner. We built them a free demo website. Respond with only a JSON object:
{"subject": "...", "body": "..."}

Business: %s (%s in %s)
Demo site: %s
Known services: %s

Keep it under 120 words, friendly, no hard sell. The body must link the demo site.`

func (r *realCopywriter) EmailCopy(ctx context.Context, req CopyRequest, step int) (*EmailCopy, error) {
	prompt := fmt.Sprintf(emailCopyPrompt,
		step, req.BusinessName, req.Niche, req.City, req.DemoURL,
		strings.Join(req.ServiceKeywords, ", "),
	)
	raw, err := r.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out EmailCopy
	if err := json.Unmarshal(extractJSON(raw), &out); err != nil {
		return nil, eris.Wrap(err, "provider: parse email copy")
	}
	return &out, nil
}

const callScriptPrompt = `Write a short opening script for a friendly follow-up phone call to %s, a %s business in %s. We emailed them a demo website (%s). Two or three sentences, conversational, ends with a question. Respond with only the script text.`

func (r *realCopywriter) CallScript(ctx context.Context, req CopyRequest) (string, error) {
	prompt := fmt.Sprintf(callScriptPrompt, req.BusinessName, req.Niche, req.City, req.DemoURL)
	raw, err := r.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (r *realCopywriter) complete(ctx context.Context, prompt string) (string, error) {
	msg, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (*sdk.Message, error) {
		return r.client.Messages.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(r.model),
			MaxTokens: 1024,
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
			},
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: copywriter request")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}
	if text.Len() == 0 {
		return "", eris.New("provider: copywriter returned no text")
	}
	return text.String(), nil
}

// extractJSON trims any chatter around the first JSON object in a completion.
func extractJSON(s string) []byte {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return []byte(s[start : end+1])
	}
	return []byte(s)
}

// realImages backs image generation with the hosted generation API.
type realImages struct {
	client imagegen.Client
	retry  resilience.RetryConfig
}

func newRealImages(cfg config.ImagesConfig) *realImages {
	var opts []imagegen.Option
	if cfg.BaseURL != "" {
		opts = append(opts, imagegen.WithBaseURL(cfg.BaseURL))
	}
	return &realImages{
		client: imagegen.NewClient(cfg.Key, opts...),
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (r *realImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	img, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*imagegen.Image, error) {
		return r.client.Generate(ctx, imagegen.GenerateRequest{Prompt: prompt, Width: 1200, Height: 630})
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: generate image")
	}
	return img.URL, nil
}

// realDeployer publishes bundles to the static hosting API.
type realDeployer struct {
	client pages.Client
}

func newRealDeployer(cfg config.DeployConfig) *realDeployer {
	var opts []pages.Option
	if cfg.BaseURL != "" {
		opts = append(opts, pages.WithBaseURL(cfg.BaseURL))
	}
	return &realDeployer{client: pages.NewClient(cfg.Key, opts...)}
}

func (r *realDeployer) DeploySite(ctx context.Context, project string, files map[string][]byte) (string, error) {
	dep, err := r.client.Deploy(ctx, project, files)
	if err != nil {
		return "", eris.Wrap(err, "provider: deploy site")
	}
	return dep.URL, nil
}

// realEmail sends through SMTP.
type realEmail struct {
	dialer *gomail.Dialer
	from   string
}

func newRealEmail(cfg config.EmailConfig) *realEmail {
	return &realEmail{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.From,
	}
}

func (r *realEmail) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	id := uuid.New().String()

	m := gomail.NewMessage()
	m.SetHeader("From", r.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@outreach>", id))
	m.SetBody("text/plain", msg.Body)

	err := resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		return r.dialer.DialAndSend(m)
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: send email")
	}
	return id, nil
}

// realCaller places calls through the voice API, guarded by a circuit
// breaker since call spend is the most expensive failure mode.
type realCaller struct {
	client      voice.Client
	breaker     *resilience.CircuitBreaker
	callbackURL string
}

func newRealCaller(cfg config.CallConfig) *realCaller {
	var opts []voice.Option
	if cfg.BaseURL != "" {
		opts = append(opts, voice.WithBaseURL(cfg.BaseURL))
	}
	return &realCaller{
		client:      voice.NewClient(cfg.Key, opts...),
		breaker:     resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		callbackURL: cfg.CallbackURL,
	}
}

func (r *realCaller) PlaceCall(ctx context.Context, call OutboundCall) (string, error) {
	var callID string
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		created, err := r.client.CreateCall(ctx, voice.CallRequest{
			PhoneNumber: call.PhoneNumber,
			Assistant:   voice.Assistant{FirstMessage: call.Script},
			Metadata:    map[string]string{"lead_id": call.LeadID},
		})
		if err != nil {
			return err
		}
		callID = created.ID
		return nil
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: place call")
	}
	return callID, nil
}
