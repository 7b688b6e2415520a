// Package audit implements the GDPR/CCPA/EDPB/EAA findings of the audit
// module: one file per finding kind, composed by RunAll. Each Check
// function is independent; aggregation happens in scoring.
package audit

import (
	"context"

	"github.com/use-agent/consent-core/models"
)

// Inputs bundles everything an audit Check needs; not every check uses
// every field.
type Inputs struct {
	HTML            string
	BannerHTML      string
	CMP             models.DetectionResult
	Requests        []models.CapturedRequest
	Mode            models.ScanMode
	AcceptBox       *BoundingBox
	RejectBox       *BoundingBox
	PostConsentPNG  []byte
	ResidencyLookup func(ctx context.Context, domain string) models.DataResidencyInfo
	Domains         []string
	VisionChecker   VisionChecker
	VisionParams    VisionParams
}

// BoundingBox mirrors rod's element.Shape() output for the symmetry check.
type BoundingBox struct {
	Width, Height float64
}

// RunAll executes every independent finding and returns the full slice,
// including non-violating findings, for the certificate's audit trail.
func RunAll(ctx context.Context, in Inputs) []models.AuditFinding {
	findings := []models.AuditFinding{
		CheckParityOfEase(in),
		CheckGranularity(in),
		CheckTransparency(in),
		CheckAccessibility(in),
		CheckUISymmetry(in),
	}
	if in.Mode == models.ModeGPC {
		findings = append(findings, CheckGPCVisual(ctx, in))
	}
	findings = append(findings, CheckDataResidency(ctx, in)...)
	return findings
}
