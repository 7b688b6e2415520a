package audit

import (
	"context"

	"github.com/use-agent/consent-core/models"
)

// CheckDataResidency resolves every third-party domain observed during the
// capture window and flags transfers to jurisdictions without an EEA
// adequacy decision, per spec §4.6. Unlike the other checks this returns
// one finding per non-adequate domain (violating) and per domain whose
// residency is UNKNOWN (non-violating) rather than a single aggregate, so the
// certificate's violation list and the +2-per-transfer (cap 10) scoring
// bump can be driven directly off it.
func CheckDataResidency(ctx context.Context, in Inputs) []models.AuditFinding {
	if in.ResidencyLookup == nil || len(in.Domains) == 0 {
		return nil
	}

	var findings []models.AuditFinding
	seen := make(map[string]bool, len(in.Domains))
	for _, domain := range in.Domains {
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true

		info := in.ResidencyLookup(ctx, domain)
		if info.Adequacy == models.AdequacyEEA || info.Adequacy == models.AdequacyAdequate {
			continue
		}

		finding := models.AuditFinding{
			Kind:     models.AuditDataResidency,
			Violated: info.Adequacy == models.AdequacyNonAdequate,
			Detail:   info,
		}
		if finding.Violated {
			finding.Severity = models.SeverityMinor
			finding.Codes = []string{"GDPR_ART44", "GDPR_ART46"}
			finding.Evidence = []string{"request to " + domain + " resolves to " + info.Country + ", no EEA adequacy decision"}
		} else {
			finding.Evidence = []string{"residency for " + domain + " could not be determined"}
		}
		findings = append(findings, finding)
	}
	return findings
}
