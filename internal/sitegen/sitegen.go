// Package sitegen renders a single-page demo website for a lead from its
// enrichment data and generated copy. The output is a file bundle ready for
// the deploy stage.
package sitegen

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Input is everything the demo site needs.
type Input struct {
	BusinessName     string
	Niche            string
	City             string
	Phone            *string
	Email            *string
	Headline         string
	Summary          string
	ServiceKeywords  []string
	Claims           []string
	HeroImageURL     string
	ServiceImageURLs []string
}

type pageData struct {
	BusinessName string
	Headline     string
	Summary      string
	Phone        string
	Email        string
	City         string
	Services     []service
	Claims       []string
	HeroImageURL string
}

type service struct {
	Name     string
	ImageURL string
}

var titler = cases.Title(language.AmericanEnglish)

// Build renders the demo site bundle. The headline falls back to the business
// name when no copy was generated.
func Build(in Input) (map[string][]byte, error) {
	if in.BusinessName == "" {
		return nil, eris.New("sitegen: business name is required")
	}

	data := pageData{
		BusinessName: in.BusinessName,
		Headline:     in.Headline,
		Summary:      in.Summary,
		City:         in.City,
		Claims:       in.Claims,
		HeroImageURL: in.HeroImageURL,
	}
	if data.Headline == "" {
		data.Headline = in.BusinessName
	}
	if in.Phone != nil {
		data.Phone = *in.Phone
	}
	if in.Email != nil {
		data.Email = *in.Email
	}

	keywords := in.ServiceKeywords
	if len(keywords) == 0 {
		keywords = []string{in.Niche}
	}
	for i, kw := range keywords {
		svc := service{Name: titler.String(strings.TrimSpace(kw))}
		if i < len(in.ServiceImageURLs) {
			svc.ImageURL = in.ServiceImageURLs[i]
		}
		data.Services = append(data.Services, svc)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, eris.Wrap(err, "sitegen: render index")
	}

	return map[string][]byte{
		"index.html": buf.Bytes(),
		"styles.css": []byte(stylesheet),
	}, nil
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.BusinessName}}{{if .City}} | {{.City}}{{end}}</title>
<link rel="stylesheet" href="styles.css">
</head>
<body>
<header class="hero"{{if .HeroImageURL}} style="background-image: url('{{.HeroImageURL}}')"{{end}}>
	<h1>{{.Headline}}</h1>
	{{if .Summary}}<p class="summary">{{.Summary}}</p>{{end}}
	{{if .Phone}}<a class="cta" href="tel:{{.Phone}}">Call {{.Phone}}</a>{{end}}
</header>
{{if .Services}}
<section class="services">
	<h2>Our Services</h2>
	<div class="grid">
	{{range .Services}}
		<div class="card">
			{{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.Name}}">{{end}}
			<h3>{{.Name}}</h3>
		</div>
	{{end}}
	</div>
</section>
{{end}}
{{if .Claims}}
<section class="claims">
	<h2>Why Choose Us</h2>
	<ul>
	{{range .Claims}}<li>{{.}}</li>{{end}}
	</ul>
</section>
{{end}}
<footer>
	<p>{{.BusinessName}}{{if .City}} &middot; {{.City}}{{end}}</p>
	{{if .Email}}<p><a href="mailto:{{.Email}}">{{.Email}}</a></p>{{end}}
</footer>
</body>
</html>
`))

const stylesheet = `body {
	margin: 0;
	font-family: 'Segoe UI', system-ui, sans-serif;
	color: #1f2933;
}
.hero {
	padding: 6rem 2rem;
	text-align: center;
	color: #fff;
	background: #1d4ed8 center/cover no-repeat;
}
.hero h1 { font-size: 2.5rem; margin: 0 0 1rem; }
.summary { max-width: 40rem; margin: 0 auto 2rem; }
.cta {
	display: inline-block;
	padding: 0.75rem 2rem;
	background: #f59e0b;
	color: #fff;
	border-radius: 9999px;
	text-decoration: none;
	font-weight: 600;
}
.services, .claims { padding: 3rem 2rem; max-width: 60rem; margin: 0 auto; }
.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(12rem, 1fr)); gap: 1.5rem; }
.card { border: 1px solid #e4e7eb; border-radius: 0.5rem; overflow: hidden; text-align: center; }
.card img { width: 100%; height: 8rem; object-fit: cover; }
.claims ul { list-style: none; padding: 0; }
.claims li { padding: 0.5rem 0; border-bottom: 1px solid #e4e7eb; }
footer { padding: 2rem; text-align: center; background: #f5f7fa; }
footer a { color: #1d4ed8; }
`
