package audit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/consent-core/models"
)

// essentialToggleMarkers identifies toggles the audit must not flag, since
// strictly-necessary categories are legitimately pre-enabled.
var essentialToggleMarkers = []string{"necessary", "essential", "required"}

// CheckGranularity enumerates consent toggles and flags any non-essential
// one that is pre-ticked.
func CheckGranularity(in Inputs) models.AuditFinding {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.BannerHTML))
	if err != nil {
		return models.AuditFinding{Kind: models.AuditGranularity, Violated: false}
	}

	preTicked := 0
	var evidence []string
	doc.Find(`input[type=checkbox], [role=switch]`).Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(s.AttrOr("aria-label", "") + " " + s.AttrOr("name", "") + " " + s.AttrOr("id", ""))
		for _, marker := range essentialToggleMarkers {
			if strings.Contains(label, marker) {
				return
			}
		}
		_, checked := s.Attr("checked")
		ariaChecked := s.AttrOr("aria-checked", "")
		if checked || ariaChecked == "true" {
			preTicked++
			evidence = append(evidence, "pre-ticked non-essential toggle: "+label)
		}
	})

	if preTicked == 0 {
		return models.AuditFinding{Kind: models.AuditGranularity, Violated: false}
	}

	severity := models.SeverityMinor
	if preTicked >= 2 {
		severity = models.SeverityMajor
	}
	return models.AuditFinding{
		Kind: models.AuditGranularity, Violated: true, Severity: severity,
		Evidence: evidence, Codes: []string{"GDPR_ART7_1", "EDPB_GL32020"},
	}
}
