package audit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/consent-core/models"
)

// POURScores reports a per-WCAG-principle score in [0,100].
type POURScores struct {
	Perceivable   int `json:"perceivable"`
	Operable      int `json:"operable"`
	Understandable int `json:"understandable"`
	Robust        int `json:"robust"`
}

// CheckAccessibility approximates the WCAG 2.2 POUR checks static analysis
// can perform: ARIA labeling (Perceivable/Robust), keyboard reachability
// markers (Operable), and a language attribute (Understandable). Contrast
// ratio requires rendered pixel sampling and is left to a vision-capable
// caller; its absence here is reflected as a partial Perceivable score
// rather than fabricated.
func CheckAccessibility(in Inputs) models.AuditFinding {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.HTML))
	if err != nil {
		return models.AuditFinding{Kind: models.AuditAccessibility, Violated: true, Severity: models.SeverityMinor,
			Evidence: []string{"page HTML could not be parsed"}, Codes: []string{"EAA_2019_882"}}
	}

	scores := POURScores{}

	langAttr, hasLang := doc.Find("html").Attr("lang")
	if hasLang && strings.TrimSpace(langAttr) != "" {
		scores.Understandable = 100
	}

	bannerDoc, berr := goquery.NewDocumentFromReader(strings.NewReader(in.BannerHTML))
	hasARIA := false
	tabIndexable := 0
	controlCount := 0
	if berr == nil {
		bannerDoc.Find("button, [role=button]").Each(func(_ int, s *goquery.Selection) {
			controlCount++
			if _, ok := s.Attr("aria-label"); ok {
				hasARIA = true
			}
			if ti, ok := s.Attr("tabindex"); ok && ti != "-1" {
				tabIndexable++
			} else if !ok {
				tabIndexable++ // buttons are natively focusable
			}
		})
	}
	if hasARIA {
		scores.Perceivable = 70
		scores.Robust = 70
	}
	if controlCount > 0 && tabIndexable == controlCount {
		scores.Operable = 100
	}

	avg := (scores.Perceivable + scores.Operable + scores.Understandable + scores.Robust) / 4
	violated := avg < 70

	finding := models.AuditFinding{
		Kind: models.AuditAccessibility, Violated: violated, Detail: scores,
	}
	if violated {
		finding.Severity = models.SeverityMinor
		finding.Codes = []string{"EAA_2019_882"}
		finding.Evidence = []string{"WCAG 2.2 POUR average below threshold"}
	}
	return finding
}
