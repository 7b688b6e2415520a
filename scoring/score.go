// Package scoring turns a finished ScanResult into a risk score, a fine
// estimate, and the signed ComplianceCertificate. Score is an additive
// formula over independently-computed findings; nothing here re-derives
// detection or audit logic, it only reads their output.
package scoring

import (
	"github.com/use-agent/consent-core/models"
)

const (
	highVolumeThreshold   = 40
	mediumVolumeThreshold = 20
)

// Score implements the risk-score formula: a base depending on whether any
// violation exists and whether a CMP was found, plus additive bumps for
// each independent risk factor, clamped to [0,100].
func Score(result *models.ScanResult) int {
	violations := countViolations(result)

	var score int
	if violations > 0 {
		score = 50
	} else if result.CMP.Found() {
		score = 20
	} else {
		score = 40
	}

	score += preConsentRatioBump(result.Requests)
	if preConsentPIIPresent(result.Requests) {
		score += 20
	}
	if !result.CMP.Found() {
		score += 10
	}
	score += volumeBump(result.Requests)

	for _, f := range result.SiteViolations {
		score += siteViolationBump(f)
	}
	for _, f := range result.GDPRAudit {
		score += gdprAuditBump(f)
	}

	nonAdequate := 0
	for _, d := range result.DataResidencyViolations {
		if d.Adequacy == models.AdequacyNonAdequate {
			nonAdequate++
		}
	}
	if bump := nonAdequate * 2; bump > 0 {
		if bump > 10 {
			bump = 10
		}
		score += bump
	}

	return clamp(score, 0, 100)
}

func countViolations(result *models.ScanResult) int {
	count := 0
	for _, f := range result.GDPRAudit {
		if f.Violated && len(f.Codes) > 0 {
			count++
		}
	}
	for _, f := range result.SiteViolations {
		if f.Violated && len(f.Codes) > 0 {
			count++
		}
	}
	for _, d := range result.DataResidencyViolations {
		if d.Adequacy == models.AdequacyNonAdequate {
			count++
		}
	}
	return count
}

// preConsentRatioBump scales up to +30 with the fraction of captured
// requests that were tracking requests fired before consent and reported
// with status "violation"; without a detected CMP none carry that status,
// so the bump is 0.
func preConsentRatioBump(requests []models.RequestLog) int {
	if len(requests) == 0 {
		return 0
	}
	var preConsentTracking, total int
	for _, r := range requests {
		total++
		if r.ConsentState == models.ConsentPre && r.Status == models.StatusViolation {
			preConsentTracking++
		}
	}
	if total == 0 {
		return 0
	}
	ratio := float64(preConsentTracking) / float64(total)
	return int(ratio * 30)
}

func preConsentPIIPresent(requests []models.RequestLog) bool {
	for _, r := range requests {
		if r.ConsentState != models.ConsentPre {
			continue
		}
		if len(r.DataTypes) > 0 {
			return true
		}
	}
	return false
}

func volumeBump(requests []models.RequestLog) int {
	switch {
	case len(requests) >= highVolumeThreshold:
		return 10
	case len(requests) >= mediumVolumeThreshold:
		return 5
	default:
		return 0
	}
}

// siteViolationBump scores the dark-pattern and accessibility findings
// RunAll appends to SiteViolations (parity, symmetry, accessibility,
// GPC-visual).
func siteViolationBump(f models.AuditFinding) int {
	if !f.Violated {
		return 0
	}
	switch f.Kind {
	case models.AuditParityOfEase:
		return 30
	case models.AuditUISymmetry:
		return 10
	case models.AuditAccessibility:
		return 5
	case models.AuditGPCVisual:
		return 15
	default:
		return 0
	}
}

// gdprAuditBump scores the GDPR-specific findings RunAll appends to
// GDPRAudit (granularity, transparency).
func gdprAuditBump(f models.AuditFinding) int {
	if !f.Violated {
		return 0
	}
	if f.Kind == models.AuditGranularity {
		if f.Severity == models.SeverityMajor {
			return 20
		}
		return 10
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Grade maps a clamped risk score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "F"
	case score >= 70:
		return "D"
	case score >= 50:
		return "C"
	case score >= 30:
		return "B"
	default:
		return "A"
	}
}

const (
	fineBaseMin        = 50000
	fineBaseMax        = 50000
	finePerViolation   = 150000
	fineHardCap        = 2000000
	highRiskThreshold  = 70
	highRiskMultiplier = 1.5
	piiMultiplier      = 1.25
)

// EstimateFine computes the fine range per spec §4.7. It never produces a
// non-zero range when there are no violations.
func EstimateFine(result *models.ScanResult) models.FineRange {
	violations := countViolations(result)
	if violations == 0 {
		return models.FineRange{Min: 0, Max: 0, Currency: "EUR"}
	}

	max := fineBaseMax + violations*finePerViolation
	multiplier := 1.0
	if result.RiskScore >= highRiskThreshold {
		multiplier *= highRiskMultiplier
	}
	if preConsentPIIPresent(result.Requests) {
		multiplier *= piiMultiplier
	}
	max = int(float64(max) * multiplier)
	if max > fineHardCap {
		max = fineHardCap
	}

	return models.FineRange{Min: fineBaseMin, Max: max, Currency: "EUR"}
}
