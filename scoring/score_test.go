package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/consent-core/models"
)

// S5: a non-adequate transfer bumps risk score by +2 versus an otherwise
// identical adequate-country fixture. Both fixtures already carry a coded
// violation, so the transfer does not also move the base from 20 to 50.
func TestNonAdequateTransferBumpsScore(t *testing.T) {
	base := &models.ScanResult{
		CMP: models.DetectionResult{Primary: "OneTrust"},
		GDPRAudit: []models.AuditFinding{
			{Kind: models.AuditGranularity, Violated: true, Severity: models.SeverityMinor, Codes: []string{"GDPR_ART7_1"}},
		},
	}
	adequate := *base
	adequate.DataResidencyViolations = []models.DataResidencyInfo{{Country: "CH", Adequacy: models.AdequacyAdequate}}

	nonAdequate := *base
	nonAdequate.DataResidencyViolations = []models.DataResidencyInfo{{Country: "US", Adequacy: models.AdequacyNonAdequate}}

	assert.Equal(t, Score(&adequate)+2, Score(&nonAdequate))
}

func TestScoreClampedToHundred(t *testing.T) {
	result := &models.ScanResult{
		SiteViolations: []models.AuditFinding{
			{Kind: models.AuditParityOfEase, Violated: true, Codes: []string{"GDPR_ART7_3"}},
			{Kind: models.AuditGPCVisual, Violated: true, Codes: []string{"CCPA_1798_135"}},
			{Kind: models.AuditUISymmetry, Violated: true, Codes: []string{"EDPB_GL32020"}},
		},
		DataResidencyViolations: []models.DataResidencyInfo{
			{Country: "US", Adequacy: models.AdequacyNonAdequate},
			{Country: "CN", Adequacy: models.AdequacyNonAdequate},
			{Country: "RU", Adequacy: models.AdequacyNonAdequate},
			{Country: "IN", Adequacy: models.AdequacyNonAdequate},
			{Country: "BR", Adequacy: models.AdequacyNonAdequate},
			{Country: "ZA", Adequacy: models.AdequacyNonAdequate},
		},
	}
	assert.Equal(t, 100, Score(result))
}

// Invariant: fineRange is zero iff violationsCount is zero.
func TestFineEstimateZeroWithoutViolations(t *testing.T) {
	result := &models.ScanResult{}
	fine := EstimateFine(result)
	assert.Zero(t, fine.Min)
	assert.Zero(t, fine.Max)
}

func TestFineEstimateNonZeroWithViolations(t *testing.T) {
	result := &models.ScanResult{
		RiskScore: 80,
		GDPRAudit: []models.AuditFinding{
			{Kind: models.AuditGranularity, Violated: true, Codes: []string{"GDPR_ART7_1"}},
		},
	}
	fine := EstimateFine(result)
	assert.Equal(t, 50000, fine.Min)
	assert.Greater(t, fine.Max, fine.Min)
}

func TestGradeBuckets(t *testing.T) {
	assert.Equal(t, "A", Grade(10))
	assert.Equal(t, "B", Grade(35))
	assert.Equal(t, "C", Grade(55))
	assert.Equal(t, "D", Grade(75))
	assert.Equal(t, "F", Grade(95))
}
