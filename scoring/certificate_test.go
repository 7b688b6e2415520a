package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/consent-core/models"
)

func sampleResult() *models.ScanResult {
	return &models.ScanResult{
		URL:       "https://example.com",
		ScanID:    "scan-1",
		StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Requests: []models.RequestLog{
			{ID: "r1", Domain: "tracker.example", URL: "https://tracker.example/pixel.gif", ConsentState: models.ConsentPre, Status: models.StatusViolation},
		},
		GDPRAudit: []models.AuditFinding{
			{Kind: models.AuditGranularity, Violated: true, Severity: models.SeverityMajor, Codes: []string{"GDPR_ART7_1"}, Evidence: []string{"two pre-ticked toggles"}},
		},
		RiskScore: 65,
	}
}

// S6: serializing a ScanResult+certificate and recomputing all three hashes
// must match; mutating a single byte of a request URL must break
// requestLogHash.
func TestCertificateRoundTripDetectsMutation(t *testing.T) {
	result := sampleResult()
	cert, err := BuildCertificate(result, models.CertScanSummary, "consent-core", "")
	require.NoError(t, err)

	recomputed, err := HashCanonical(result.Requests)
	require.NoError(t, err)
	assert.Equal(t, cert.Evidence.RequestLogHash, recomputed)

	result.Requests[0].URL = result.Requests[0].URL + "x"
	mutatedHash, err := HashCanonical(result.Requests)
	require.NoError(t, err)
	assert.NotEqual(t, cert.Evidence.RequestLogHash, mutatedHash)
}

func TestCertificateSigAlgNoneWithoutKey(t *testing.T) {
	cert, err := BuildCertificate(sampleResult(), models.CertScanSummary, "consent-core", "")
	require.NoError(t, err)
	assert.Equal(t, "NONE", cert.Metadata.SigAlg)
	assert.Empty(t, cert.Signature)
}

func TestCertificateSignsWhenKeyProvided(t *testing.T) {
	cert, err := BuildCertificate(sampleResult(), models.CertScanSummary, "consent-core", "top-secret")
	require.NoError(t, err)
	assert.Equal(t, "HMAC-SHA256", cert.Metadata.SigAlg)
	assert.NotEmpty(t, cert.Signature)
}

func TestCertificateValidUntilIsThirtyDaysOut(t *testing.T) {
	result := sampleResult()
	result.FinishedAt = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	cert, err := BuildCertificate(result, models.CertScanSummary, "consent-core", "")
	require.NoError(t, err)
	assert.Equal(t, result.FinishedAt.Add(30*24*time.Hour), cert.Metadata.ValidUntil)
}

// Invariant: violationsCount equals the number of regulatory-code-bearing
// findings, not the raw tracking request count.
func TestViolationsCountReflectsCodedFindingsNotRequestCount(t *testing.T) {
	result := sampleResult()
	result.ViolationsCount = countViolations(result)
	assert.Equal(t, 1, result.ViolationsCount)
	assert.Len(t, result.Requests, 1)
}

func TestCanonicalJSONSortsNestedKeys(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": map[string]interface{}{"z": 1, "y": 2}}
	out, err := CanonicalJSON(a)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":2,"z":1},"b":1}`, string(out))

	var roundTrip map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &roundTrip))
}
