package enrich

import (
	"regexp"
	"strings"
)

// Data is what enrichment pulls out of a lead's website.
type Data struct {
	Phone           *string
	Email           *string
	ServiceKeywords []string
	Claims          []string
	PagesVisited    int
}

var (
	tagRe   = regexp.MustCompile(`(?s)<script.*?</script>|<style.*?</style>|<[^>]*>`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	wsRe    = regexp.MustCompile(`\s+`)
	digitRe = regexp.MustCompile(`\D`)
)

// serviceVocabulary is the fixed keyword set matched against page text.
// Matches feed email and call personalization.
var serviceVocabulary = []string{
	"emergency",
	"repair",
	"installation",
	"replacement",
	"maintenance",
	"inspection",
	"residential",
	"commercial",
	"remodel",
	"cleaning",
	"free estimate",
	"licensed",
	"insured",
	"24/7",
}

// claimMarkers flag sentences worth quoting back at the business.
var claimMarkers = []string{
	"years of experience",
	"years in business",
	"family owned",
	"family-owned",
	"locally owned",
	"award",
	"guarantee",
	"satisfaction",
	"trusted",
}

const maxClaims = 3

// Extract pulls contact details, service keywords, and credibility claims
// from fetched pages. Missing signals leave nil or empty fields.
func Extract(pages []Page) Data {
	data := Data{PagesVisited: len(pages)}

	var text strings.Builder
	for _, p := range pages {
		text.WriteString(stripHTML(p.Body))
		text.WriteString(" ")
	}
	full := text.String()
	lower := strings.ToLower(full)

	if m := phoneRe.FindString(full); m != "" {
		phone := normalizePhone(m)
		data.Phone = &phone
	}
	if m := findEmail(full); m != "" {
		data.Email = &m
	}

	for _, kw := range serviceVocabulary {
		if strings.Contains(lower, kw) {
			data.ServiceKeywords = append(data.ServiceKeywords, kw)
		}
	}

	data.Claims = findClaims(full)
	return data
}

func stripHTML(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	text = strings.NewReplacer("&amp;", "&", "&nbsp;", " ", "&#39;", "'", "&quot;", `"`).Replace(text)
	return wsRe.ReplaceAllString(text, " ")
}

// normalizePhone reduces a match to E.164 with a US country code.
func normalizePhone(raw string) string {
	digits := digitRe.ReplaceAllString(raw, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return "+1" + digits
}

func findEmail(text string) string {
	for _, m := range emailRe.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		// Image filenames and tool domains match the pattern too.
		if strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") ||
			strings.HasSuffix(lower, ".svg") || strings.Contains(lower, "example.") ||
			strings.Contains(lower, "sentry.") {
			continue
		}
		return lower
	}
	return ""
}

func findClaims(text string) []string {
	var claims []string
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		s := strings.TrimSpace(sentence)
		if len(s) < 15 || len(s) > 160 {
			continue
		}
		lower := strings.ToLower(s)
		for _, marker := range claimMarkers {
			if strings.Contains(lower, marker) {
				claims = append(claims, s)
				break
			}
		}
		if len(claims) >= maxClaims {
			break
		}
	}
	return claims
}
