package audit

import (
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/consent-core/models"
)

var blankBannerURL, _ = url.Parse("about:blank")

const minBannerTextLength = 20

// dataCategoryTerms is the vocabulary the check expects a transparent
// banner to use instead of vague language.
var dataCategoryTerms = []string{"advertising", "analytics", "marketing", "personalization", "measurement"}

var namedThirdPartyPattern = regexp.MustCompile(`(?i)google|facebook|meta|adobe|amazon|tiktok|microsoft|oracle`)

var vagueOnlyPattern = regexp.MustCompile(`(?i)\bpartners\b`)

// CheckTransparency checks banner text for data-category enumeration and
// specific third-party names, classifying Article 13 compliance.
func CheckTransparency(in Inputs) models.AuditFinding {
	text := extractBannerText(in.BannerHTML)
	lower := strings.ToLower(text)

	categoriesNamed := 0
	for _, term := range dataCategoryTerms {
		if strings.Contains(lower, term) {
			categoriesNamed++
		}
	}
	namesThirdParty := namedThirdPartyPattern.MatchString(text)
	onlyVague := vagueOnlyPattern.MatchString(lower) && !namesThirdParty

	var compliance string
	switch {
	case categoriesNamed >= 2 && namesThirdParty:
		compliance = "FULL"
	case categoriesNamed >= 1 || namesThirdParty:
		compliance = "PARTIAL"
	default:
		compliance = "NONE"
	}

	violated := compliance != "FULL"
	evidence := []string{"article13Compliance:" + compliance}
	if onlyVague {
		evidence = append(evidence, "banner refers only to generic \"partners\" rather than naming them")
	}

	finding := models.AuditFinding{
		Kind: models.AuditTransparency, Violated: violated, Evidence: evidence,
		Detail: map[string]string{"article13Compliance": compliance},
	}
	if violated {
		finding.Severity = models.SeverityMinor
		if compliance == "NONE" {
			finding.Severity = models.SeverityMajor
		}
		finding.Codes = []string{"GDPR_ART13", "GDPR_ART12"}
	}
	return finding
}

// extractBannerText uses go-readability on the banner fragment, falling
// back to the raw HTML when the fragment is too short for Readability's
// heuristics to engage (mirrors the teacher's minContentLength fallback).
func extractBannerText(bannerHTML string) string {
	if len(bannerHTML) < minBannerTextLength {
		return bannerHTML
	}
	article, err := readability.FromReader(strings.NewReader(bannerHTML), blankBannerURL)
	if err != nil || len(strings.TrimSpace(article.TextContent)) < minBannerTextLength {
		return stripTags(bannerHTML)
	}
	return article.TextContent
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func stripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}
