package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/searchpulse/backend/history"
	"github.com/searchpulse/backend/recommend"
	"github.com/searchpulse/backend/scoring"
)

const (
	bandGood = "good"
	bandWarn = "warn"
	bandPoor = "poor"
)

// FactorRow is one scoring factor flattened for the report table.
type FactorRow struct {
	Name        string
	Points      int
	Max         int
	Band        string
	Explanation string
}

// AnalysisReport is the template data for a single-analysis email.
type AnalysisReport struct {
	URL             string
	Vertical        string
	SEOScore        int
	GEOScore        int
	SEORows         []FactorRow
	GEORows         []FactorRow
	Recommendations []recommend.Item
	GeneratedAt     time.Time
}

// DigestData is the template data for the weekly digest email.
type DigestData struct {
	WeekOf   time.Time
	Analyses []history.Record
	Trends   []history.Trend
}

// NewAnalysisReport flattens two evaluations into banded table rows. The
// vertical selects which rubric the AI factor maxima come from.
func NewAnalysisReport(pageURL, vertical string, seo, geo scoring.Evaluation, items []recommend.Item, at time.Time) AnalysisReport {
	return AnalysisReport{
		URL:             pageURL,
		Vertical:        vertical,
		SEOScore:        seo.Score,
		GEOScore:        geo.Score,
		SEORows:         factorRows(seo, scoring.TraditionalFactorMax),
		GEORows:         factorRows(geo, scoring.VerticalConfig(vertical).FactorMax),
		Recommendations: items,
		GeneratedAt:     at,
	}
}

func factorRows(eval scoring.Evaluation, maxFor func(string) int) []FactorRow {
	rows := make([]FactorRow, 0, len(eval.Factors))
	for _, f := range eval.Factors {
		max := maxFor(f.Name)
		rows = append(rows, FactorRow{
			Name:        f.Name,
			Points:      f.Points,
			Max:         max,
			Band:        band(f.Points, max),
			Explanation: f.Explanation,
		})
	}
	return rows
}

// band buckets a factor by percent of its maximum: 80 and up is good,
// 50 and up needs attention, the rest is poor.
func band(points, max int) string {
	if max <= 0 {
		return bandPoor
	}
	switch {
	case points*100 >= max*80:
		return bandGood
	case points*100 >= max*50:
		return bandWarn
	default:
		return bandPoor
	}
}

var templateFuncs = template.FuncMap{
	"bandColor": func(band string) string {
		switch band {
		case bandGood:
			return "#15803d"
		case bandWarn:
			return "#b45309"
		default:
			return "#b91c1c"
		}
	},
}

// Renderer renders report and digest emails from embedded templates.
type Renderer struct {
	analysis *template.Template
	digest   *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{
		analysis: template.Must(template.New("analysis").Funcs(templateFuncs).Parse(analysisTemplate)),
		digest:   template.Must(template.New("digest").Funcs(templateFuncs).Parse(digestTemplate)),
	}
}

// RenderAnalysis renders the single-analysis report as an HTML document.
func (r *Renderer) RenderAnalysis(data AnalysisReport) (string, error) {
	var out strings.Builder
	if err := r.analysis.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render analysis report: %w", err)
	}
	return out.String(), nil
}

// RenderDigest renders the weekly digest as an HTML document.
func (r *Renderer) RenderDigest(data DigestData) (string, error) {
	var out strings.Builder
	if err := r.digest.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return out.String(), nil
}

const analysisTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; margin: 0; padding: 24px;">
  <h1 style="font-size: 20px;">SearchPulse report for {{.URL}}</h1>
  <p style="color: #52606d;">Vertical: {{.Vertical}} &middot; Generated {{.GeneratedAt.Format "Jan 2, 2006 15:04 MST"}}</p>
  <p style="font-size: 16px;">
    Traditional SEO: <strong>{{.SEOScore}}/100</strong><br>
    AI readiness: <strong>{{.GEOScore}}/100</strong>
  </p>

  <h2 style="font-size: 16px;">Traditional SEO factors</h2>
  <table cellpadding="6" cellspacing="0" style="border-collapse: collapse; width: 100%;">
    <tr style="text-align: left; border-bottom: 2px solid #9aa5b1;">
      <th>Factor</th><th>Points</th><th>Notes</th>
    </tr>
    {{range .SEORows}}
    <tr style="border-bottom: 1px solid #e4e7eb;">
      <td>{{.Name}}</td>
      <td style="color: {{bandColor .Band}}; white-space: nowrap;">{{.Points}}/{{.Max}}</td>
      <td>{{.Explanation}}</td>
    </tr>
    {{end}}
  </table>

  <h2 style="font-size: 16px;">AI readiness factors</h2>
  <table cellpadding="6" cellspacing="0" style="border-collapse: collapse; width: 100%;">
    <tr style="text-align: left; border-bottom: 2px solid #9aa5b1;">
      <th>Factor</th><th>Points</th><th>Notes</th>
    </tr>
    {{range .GEORows}}
    <tr style="border-bottom: 1px solid #e4e7eb;">
      <td>{{.Name}}</td>
      <td style="color: {{bandColor .Band}}; white-space: nowrap;">{{.Points}}/{{.Max}}</td>
      <td>{{.Explanation}}</td>
    </tr>
    {{end}}
  </table>

  {{if .Recommendations}}
  <h2 style="font-size: 16px;">Recommended fixes</h2>
  <ol>
    {{range .Recommendations}}
    <li style="margin-bottom: 8px;"><strong>{{.Factor}}</strong> (priority {{.Priority}}): {{.Recommendation}}</li>
    {{end}}
  </ol>
  {{end}}
</body>
</html>
`

const digestTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; margin: 0; padding: 24px;">
  <h1 style="font-size: 20px;">SearchPulse weekly digest</h1>
  <p style="color: #52606d;">Week of {{.WeekOf.Format "Jan 2, 2006"}}</p>

  {{if .Analyses}}
  <h2 style="font-size: 16px;">Recent analyses</h2>
  <table cellpadding="6" cellspacing="0" style="border-collapse: collapse; width: 100%;">
    <tr style="text-align: left; border-bottom: 2px solid #9aa5b1;">
      <th>URL</th><th>SEO</th><th>AI</th><th>Analyzed</th>
    </tr>
    {{range .Analyses}}
    <tr style="border-bottom: 1px solid #e4e7eb;">
      <td>{{.URL}}</td>
      <td>{{.SEO.Score}}</td>
      <td>{{.GEO.Score}}</td>
      <td style="white-space: nowrap;">{{.CreatedAt.Format "Jan 2 15:04"}}</td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p>No analyses were recorded this week.</p>
  {{end}}

  {{if .Trends}}
  <h2 style="font-size: 16px;">Score trends</h2>
  <table cellpadding="6" cellspacing="0" style="border-collapse: collapse; width: 100%;">
    <tr style="text-align: left; border-bottom: 2px solid #9aa5b1;">
      <th>URL</th><th>SEO first / last / best</th><th>AI first / last / best</th><th>Samples</th>
    </tr>
    {{range .Trends}}
    <tr style="border-bottom: 1px solid #e4e7eb;">
      <td>{{.URL}}</td>
      <td>{{.FirstSEO}} / {{.LastSEO}} / {{.BestSEO}}</td>
      <td>{{.FirstGEO}} / {{.LastGEO}} / {{.BestGEO}}</td>
      <td>{{.Samples}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
</body>
</html>
`
