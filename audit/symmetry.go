package audit

import "github.com/use-agent/consent-core/models"

const (
	majorBiasRatio = 1.5
	minorBiasRatio = 1.15
)

// CheckUISymmetry measures accept vs reject control bounding boxes and
// flags a size bias per spec §4.6.
func CheckUISymmetry(in Inputs) models.AuditFinding {
	if in.AcceptBox == nil || in.RejectBox == nil {
		return models.AuditFinding{Kind: models.AuditUISymmetry, Violated: false,
			Evidence: []string{"one or both controls not located; symmetry not assessed"}}
	}

	acceptArea := in.AcceptBox.Width * in.AcceptBox.Height
	rejectArea := in.RejectBox.Width * in.RejectBox.Height
	if acceptArea <= 0 || rejectArea <= 0 {
		return models.AuditFinding{Kind: models.AuditUISymmetry, Violated: false}
	}

	ratio := acceptArea / rejectArea
	if ratio < 1 {
		ratio = 1 / ratio
	}

	switch {
	case ratio > majorBiasRatio:
		return models.AuditFinding{
			Kind: models.AuditUISymmetry, Violated: true, Severity: models.SeverityMajor,
			Codes:    []string{"EDPB_GL32020"},
			Evidence: []string{"accept/reject size ratio exceeds 1.5x"},
		}
	case ratio > minorBiasRatio:
		return models.AuditFinding{
			Kind: models.AuditUISymmetry, Violated: true, Severity: models.SeverityMinor,
			Codes:    []string{"EDPB_GL32020"},
			Evidence: []string{"accept/reject size ratio exceeds 1.15x"},
		}
	default:
		return models.AuditFinding{Kind: models.AuditUISymmetry, Violated: false}
	}
}
