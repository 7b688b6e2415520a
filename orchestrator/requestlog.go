package orchestrator

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/signatures"
)

// BuildRequestLogs converts the merged capture-layer records into the
// reported RequestLog view: classifying pre/post consent against the
// timeline's click instant, flagging known tracking domains, and
// resolving data residency per unique domain. cmpDetected gates the
// violation status: a pre-consent tracking request is only ever reported
// as a violation once a CMP has actually been identified on the page —
// without one there is no consent mechanism to have been bypassed.
func BuildRequestLogs(ctx context.Context, records []models.CapturedRequest, timeline models.ConsentTimeline, resolve func(ctx context.Context, domain string) models.DataResidencyInfo, cmpDetected bool) []models.RequestLog {
	residencyByDomain := make(map[string]models.DataResidencyInfo)

	logs := make([]models.RequestLog, 0, len(records))
	for _, rec := range records {
		domain := hostOf(rec.URL)

		consentState := models.ConsentPre
		if timeline.ConsentClickAt != nil && rec.TSeen >= *timeline.ConsentClickAt {
			consentState = models.ConsentPost
		}

		isTracking := matchesAny(signatures.TrackingDomains, rec.URL)
		status := models.StatusAllowed
		var dataTypes []string
		if consentState == models.ConsentPre && isTracking {
			dataTypes = piiParamsIn(rec.URL, rec.BodySnippet)
			if cmpDetected {
				status = models.StatusViolation
			}
		}

		var residency *models.DataResidencyInfo
		if resolve != nil && domain != "" {
			info, ok := residencyByDomain[domain]
			if !ok {
				info = resolve(ctx, domain)
				residencyByDomain[domain] = info
			}
			residency = &info
		}

		logs = append(logs, models.RequestLog{
			ID:            uuid.New().String(),
			Domain:        domain,
			URL:           rec.URL,
			TSeen:         rec.TSeen,
			Type:          classifyKind(rec.ResourceType),
			ConsentState:  consentState,
			Status:        status,
			DataTypes:     dataTypes,
			DataResidency: residency,
		})
	}
	return logs
}

// UniqueDomains returns the distinct hostnames observed across the request
// log, feeding the data-residency audit.
func UniqueDomains(logs []models.RequestLog) []string {
	seen := make(map[string]bool, len(logs))
	var out []string
	for _, l := range logs {
		if l.Domain == "" || seen[l.Domain] {
			continue
		}
		seen[l.Domain] = true
		out = append(out, l.Domain)
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func classifyKind(resourceType string) models.RequestKind {
	switch strings.ToLower(resourceType) {
	case "script":
		return models.RequestScript
	case "xhr", "fetch":
		return models.RequestXHR
	default:
		return models.RequestPixel
	}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func piiParamsIn(rawURL, bodySnippet string) []string {
	lower := strings.ToLower(rawURL + "&" + bodySnippet)
	var found []string
	for _, key := range signatures.PIIParamKeys {
		if strings.Contains(lower, strings.ToLower(key)) {
			found = append(found, key)
		}
	}
	return found
}
