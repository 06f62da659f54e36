package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"prezence/api/internal/roster"
)

//go:embed templates/*.html
var templateFS embed.FS

var protocolTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"share":  formatShare,
		"yesNo":  yesNo,
		"lower":  strings.ToLower,
		"czDate": czechDate,
	}

	templateContent, err := templateFS.ReadFile("templates/protocol.html")
	if err != nil {
		// Fallback to built-in template if file not found
		protocolTemplate = template.Must(template.New("protocol").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	protocolTemplate = template.Must(template.New("protocol").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds everything the protocol template prints.
type TemplateData struct {
	Date         time.Time
	PresentCount int
	TotalCount   int
	PresentShare float64
	QuorumMet    bool
	Units        []roster.Unit
	// Voters are the present units, in roll order.
	Voters  []roster.Unit
	Tallies []VoteTally
}

// VoteTally is one result card on the voting page.
type VoteTally struct {
	Label string
	Class string
	// OfPresent is the bucket as a percentage of the present share.
	OfPresent float64
	// OfAll is the bucket share itself, i.e. a percentage of all owners.
	OfAll float64
}

// NewTemplateData computes the protocol figures for units.
func NewTemplateData(units []roster.Unit, date time.Time) TemplateData {
	stats := roster.Aggregate(units)
	voters := make([]roster.Unit, 0, stats.PresentCount)
	for _, u := range units {
		if u.IsPresent {
			voters = append(voters, u)
		}
	}
	return TemplateData{
		Date:         date,
		PresentCount: stats.PresentCount,
		TotalCount:   stats.TotalCount,
		PresentShare: stats.TotalShare,
		QuorumMet:    stats.QuorumMet(),
		Units:        units,
		Voters:       voters,
		Tallies: []VoteTally{
			{Label: "PRO", Class: "pro", OfPresent: stats.PercentOfPresent(stats.VotePro), OfAll: stats.VotePro},
			{Label: "PROTI", Class: "against", OfPresent: stats.PercentOfPresent(stats.VoteAgainst), OfAll: stats.VoteAgainst},
			{Label: "ZDRŽEL SE", Class: "abstain", OfPresent: stats.PercentOfPresent(stats.VoteAbstain), OfAll: stats.VoteAbstain},
		},
	}
}

// RenderProtocolHTML renders the attendance and voting protocol.
func RenderProtocolHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := protocolTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatShare prints v the Czech way: two decimals, decimal comma and a
// non-breaking space between thousands.
func formatShare(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) > 4 {
		var b strings.Builder
		for i, r := range whole {
			if i > 0 && (len(whole)-i)%3 == 0 {
				b.WriteRune('\u00a0')
			}
			b.WriteRune(r)
		}
		whole = b.String()
	}
	return sign + whole + "," + frac
}

func czechDate(t time.Time) string {
	return fmt.Sprintf("%d. %d. %d", t.Day(), int(t.Month()), t.Year())
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html lang="cs">
<head>
  <meta charset="UTF-8">
  <title>Protokol o účasti a hlasování - SVJ</title>
</head>
<body>
  <h1>Protokol o účasti</h1>
  <p>Datum: {{czDate .Date}}</p>
  <p>Přítomno jednotek: {{.PresentCount}} / {{.TotalCount}}, podíl přítomných: {{share .PresentShare}} %, usnášeníschopnost: {{if .QuorumMet}}ANO{{else}}NE{{end}}</p>
  <table>
    {{range .Units}}<tr><td>{{.Block}}</td><td>{{.UnitNumber}}</td><td>{{.OwnerName}}</td><td>{{share .Share}}</td><td>{{yesNo .IsPresent}}</td><td>{{yesNo .HasPowerOfAttorney}}</td></tr>
    {{end}}
  </table>
  <h1>Výsledky hlasování</h1>
  {{range .Tallies}}<p>{{.Label}}: {{share .OfPresent}} % z přítomných, {{share .OfAll}} % ze všech vlastníků</p>
  {{end}}
  <table>
    {{range .Voters}}<tr><td>{{.Block}}</td><td>{{.UnitNumber}}</td><td>{{.OwnerName}}</td><td>{{share .Share}}</td><td>{{if .Vote}}{{.Vote}}{{else}}---{{end}}</td></tr>
    {{end}}
  </table>
</body>
</html>`
