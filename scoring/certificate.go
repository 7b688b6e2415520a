package scoring

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/signatures"
)

const certificateValidity = 30 * 24 * time.Hour

// auditTrail is the exact shape hashed for CertificateEvidence.AuditTrailHash,
// matching the three named audit slices spec.md ties the hash to.
type auditTrail struct {
	GPCAudit      []models.AuditFinding `json:"gpcAudit"`
	SymmetryAudit []models.AuditFinding `json:"symmetryAudit"`
	GDPRAudit     []models.AuditFinding `json:"gdprAudit"`
}

// BuildCertificate assembles the tamper-evident certificate bound to a
// finished ScanResult. signingKey is optional; when empty the certificate
// carries sigAlg "NONE" and no signature.
func BuildCertificate(result *models.ScanResult, certType models.CertificateType, generator, signingKey string) (*models.ComplianceCertificate, error) {
	requestLogHash, err := HashCanonical(result.Requests)
	if err != nil {
		return nil, err
	}

	trail := splitAuditTrail(result)
	auditTrailHash, err := HashCanonical(trail)
	if err != nil {
		return nil, err
	}

	var screenshotHashes models.ScreenshotHashes
	if result.ScreenshotBefore != nil {
		screenshotHashes.Before = result.ScreenshotBefore.Hash
		screenshotHashes.BeforeCapturedAt = result.ScreenshotBefore.CapturedAt
	}
	if result.ScreenshotAfter != nil {
		screenshotHashes.After = result.ScreenshotAfter.Hash
		screenshotHashes.AfterCapturedAt = result.ScreenshotAfter.CapturedAt
	}

	violations := buildViolations(result)

	now := result.FinishedAt
	if now.IsZero() {
		now = time.Now()
	}

	cert := &models.ComplianceCertificate{
		Version: "1.0",
		Type:    certType,
		Metadata: models.CertificateMetadata{
			CertID:      uuid.New().String(),
			GeneratedAt: now,
			ValidUntil:  now.Add(certificateValidity),
			Generator:   generator,
			SigAlg:      "NONE",
		},
		Subject: models.CertificateSubject{
			URL:           result.URL,
			ScanID:        result.ScanID,
			ScanTimestamp: result.StartedAt,
		},
		Findings: models.CertificateFindings{
			Score:      result.RiskScore,
			RiskLevel:  Grade(result.RiskScore),
			Violations: violations,
		},
		Evidence: models.CertificateEvidence{
			ScreenshotHashes: screenshotHashes,
			RequestLogHash:   requestLogHash,
			AuditTrailHash:   auditTrailHash,
		},
	}

	if signingKey != "" {
		sig, err := sign(cert, signingKey)
		if err != nil {
			return nil, err
		}
		cert.Metadata.SigAlg = "HMAC-SHA256"
		cert.Signature = sig
	}

	return cert, nil
}

// splitAuditTrail recovers the {gpcAudit, symmetryAudit, gdprAudit} shape
// the certificate hashes from RunAll's flat SiteViolations/GDPRAudit
// slices.
func splitAuditTrail(result *models.ScanResult) auditTrail {
	trail := auditTrail{GDPRAudit: result.GDPRAudit}
	for _, f := range result.SiteViolations {
		switch f.Kind {
		case models.AuditGPCVisual:
			trail.GPCAudit = append(trail.GPCAudit, f)
		case models.AuditUISymmetry:
			trail.SymmetryAudit = append(trail.SymmetryAudit, f)
		}
	}
	return trail
}

// violationTypeFor maps an AuditKind to the violationType key
// signatures.ViolationCitations is keyed on.
func violationTypeFor(kind models.AuditKind) string {
	switch kind {
	case models.AuditParityOfEase:
		return "PARITY_OF_EASE"
	case models.AuditGranularity:
		return "GRANULARITY"
	case models.AuditTransparency:
		return "TRANSPARENCY"
	case models.AuditAccessibility:
		return "ACCESSIBILITY"
	case models.AuditGPCVisual:
		return "GPC_IGNORED"
	case models.AuditUISymmetry:
		return "UI_BIAS"
	default:
		return ""
	}
}

func buildViolations(result *models.ScanResult) []models.Violation {
	var violations []models.Violation
	appendFrom := func(findings []models.AuditFinding) {
		for _, f := range findings {
			if !f.Violated || len(f.Codes) == 0 {
				continue
			}
			violationType := violationTypeFor(f.Kind)
			if violationType == "" {
				continue
			}
			for _, cit := range signatures.ExpandCitations(violationType) {
				violations = append(violations, models.Violation{
					Code:     cit.Code,
					Article:  cit.Article,
					Severity: f.Severity,
					Evidence: f.Evidence,
				})
			}
		}
	}

	appendFrom(result.GDPRAudit)
	appendFrom(result.SiteViolations)
	for _, d := range result.DataResidencyViolations {
		if d.Adequacy != models.AdequacyNonAdequate {
			continue
		}
		for _, cit := range signatures.ExpandCitations("NON_ADEQUATE_TRANSFER") {
			violations = append(violations, models.Violation{
				Code:     cit.Code,
				Article:  cit.Article,
				Severity: models.SeverityMinor,
				Evidence: []string{"transfer to " + d.Country},
			})
		}
	}
	return violations
}

func sign(cert *models.ComplianceCertificate, key string) (string, error) {
	payload, err := HashCanonical(cert.Findings)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload + cert.Evidence.RequestLogHash + cert.Evidence.AuditTrailHash))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
