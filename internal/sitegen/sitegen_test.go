package sitegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestBuild_FullInput(t *testing.T) {
	bundle, err := Build(Input{
		BusinessName:     "Ace Plumbing",
		Niche:            "plumbers",
		City:             "Austin",
		Phone:            strptr("+15125550100"),
		Email:            strptr("info@aceplumbing.com"),
		Headline:         "Austin's Most Trusted Plumbers",
		Summary:          "Fast, licensed, and local.",
		ServiceKeywords:  []string{"emergency", "repair"},
		Claims:           []string{"Family owned for 20 years"},
		HeroImageURL:     "https://cdn.example.com/hero.png",
		ServiceImageURLs: []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)
	require.Contains(t, bundle, "index.html")
	require.Contains(t, bundle, "styles.css")

	html := string(bundle["index.html"])
	assert.Contains(t, html, "Austin&#39;s Most Trusted Plumbers")
	assert.Contains(t, html, "tel:+15125550100")
	assert.Contains(t, html, "mailto:info@aceplumbing.com")
	assert.Contains(t, html, "Emergency")
	assert.Contains(t, html, "Repair")
	assert.Contains(t, html, "Family owned for 20 years")
	assert.Contains(t, html, "https://cdn.example.com/hero.png")
}

func TestBuild_MinimalInputFallsBack(t *testing.T) {
	bundle, err := Build(Input{
		BusinessName: "Ace Plumbing",
		Niche:        "plumbers",
	})
	require.NoError(t, err)

	html := string(bundle["index.html"])
	assert.Contains(t, html, "<h1>Ace Plumbing</h1>")
	assert.Contains(t, html, "Plumbers")
	assert.NotContains(t, html, "tel:")
	assert.NotContains(t, html, "mailto:")
}

func TestBuild_RequiresBusinessName(t *testing.T) {
	_, err := Build(Input{Niche: "plumbers"})
	require.Error(t, err)
}

func TestBuild_EscapesMarkup(t *testing.T) {
	bundle, err := Build(Input{
		BusinessName: "Ace <script>alert(1)</script> Plumbing",
	})
	require.NoError(t, err)
	html := string(bundle["index.html"])
	assert.NotContains(t, html, "<script>alert(1)</script>")
}
