package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/consent-core/models"
)

func TestBuildRequestLogsClassifiesPreConsentTracking(t *testing.T) {
	clickAt := 2 * time.Second
	timeline := models.ConsentTimeline{ConsentClickAt: &clickAt}

	records := []models.CapturedRequest{
		{URL: "https://www.google-analytics.com/collect?uid=42", TSeen: 1 * time.Second, Source: models.SourceTransport},
		{URL: "https://www.google-analytics.com/collect?uid=42", TSeen: 3 * time.Second, Source: models.SourceTransport},
		{URL: "https://cdn.example.com/app.js", TSeen: 500 * time.Millisecond, Source: models.SourceTransport},
	}

	logs := BuildRequestLogs(context.Background(), records, timeline, nil, true)
	require.Len(t, logs, 3)

	assert.Equal(t, models.ConsentPre, logs[0].ConsentState)
	assert.Equal(t, models.StatusViolation, logs[0].Status)
	assert.Contains(t, logs[0].DataTypes, "uid")

	assert.Equal(t, models.ConsentPost, logs[1].ConsentState)
	assert.Equal(t, models.StatusAllowed, logs[1].Status)

	assert.Equal(t, models.ConsentPre, logs[2].ConsentState)
	assert.Equal(t, models.StatusAllowed, logs[2].Status, "non-tracking domain must not be flagged")
}

func TestBuildRequestLogsWithoutCMPNeverReportsViolation(t *testing.T) {
	clickAt := 2 * time.Second
	timeline := models.ConsentTimeline{ConsentClickAt: &clickAt}

	records := []models.CapturedRequest{
		{URL: "https://www.google-analytics.com/collect?uid=42", TSeen: 1 * time.Second, Source: models.SourceTransport},
	}

	logs := BuildRequestLogs(context.Background(), records, timeline, nil, false)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ConsentPre, logs[0].ConsentState)
	assert.Equal(t, models.StatusAllowed, logs[0].Status, "no CMP detected means nothing could have been bypassed")
}

func TestUniqueDomainsDeduplicates(t *testing.T) {
	logs := []models.RequestLog{
		{Domain: "a.example"}, {Domain: "b.example"}, {Domain: "a.example"},
	}
	assert.ElementsMatch(t, []string{"a.example", "b.example"}, UniqueDomains(logs))
}

func TestSplitFindingsRoutesByKind(t *testing.T) {
	findings := []models.AuditFinding{
		{Kind: models.AuditGranularity, Violated: true, Codes: []string{"GDPR_ART7_1"}},
		{Kind: models.AuditParityOfEase, Violated: true, Codes: []string{"GDPR_ART7_3"}},
		{Kind: models.AuditDataResidency, Violated: true, Detail: models.DataResidencyInfo{Country: "US", Adequacy: models.AdequacyNonAdequate}},
	}

	gdpr, site, residency := splitFindings(findings)
	require.Len(t, gdpr, 1)
	require.Len(t, site, 1)
	require.Len(t, residency, 1)
	assert.Equal(t, models.AuditGranularity, gdpr[0].Kind)
	assert.Equal(t, models.AuditParityOfEase, site[0].Kind)
	assert.Equal(t, "US", residency[0].Country)
}
