package audit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/consent-core/models"
)

// rejectSelectors mirrors the ranked accept-control list, targeting the
// "reject all" / "decline" family of controls instead.
var rejectSelectors = []string{
	`button[id*=uc-deny]`,
	`button[id*=reject]`,
	`button[data-testid*=reject]`,
	`button[class*=reject]`,
	`button[class*=decline]`,
}

// CheckParityOfEase scans the banner DOM for a first-layer reject control;
// violates if none is found.
func CheckParityOfEase(in Inputs) models.AuditFinding {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.BannerHTML))
	if err != nil {
		return models.AuditFinding{Kind: models.AuditParityOfEase, Violated: true, Severity: models.SeverityMajor,
			Evidence: []string{"banner HTML could not be parsed"}, Codes: []string{"GDPR_ART7_3"}}
	}

	found := false
	for _, sel := range rejectSelectors {
		if doc.Find(sel).Length() > 0 {
			found = true
			break
		}
	}
	if !found {
		doc.Find("button, [role=button]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(strings.TrimSpace(s.Text()))
			if strings.Contains(text, "reject") || strings.Contains(text, "decline") || strings.Contains(text, "ablehnen") {
				found = true
				return false
			}
			return true
		})
	}

	if !found {
		return models.AuditFinding{
			Kind: models.AuditParityOfEase, Violated: true, Severity: models.SeverityMajor,
			Evidence: []string{"no first-layer reject control found in banner"},
			Codes:    []string{"EDPB_GL32020", "GDPR_ART7_3"},
		}
	}
	return models.AuditFinding{Kind: models.AuditParityOfEase, Violated: false}
}
