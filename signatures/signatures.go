// Package signatures holds the static data tables the detection and audit
// engines score against: CMP/TMS fingerprints, tracking-domain patterns,
// the EEA/adequate-country lists, the vendor-to-country map, and the
// regulatory citation database. Kept as data, not an inheritance hierarchy
// of detector types, per the design notes on dynamic detection.
package signatures

import (
	"regexp"

	"github.com/use-agent/consent-core/models"
)

// CMPSignature describes how to recognize one Consent Management Platform.
type CMPSignature struct {
	Name            string
	ContentPatterns []*regexp.Regexp
	RequestPatterns []*regexp.Regexp
}

// TMSSignature describes how to recognize one Tag Management System and,
// where applicable, the network pattern that proves it is actually firing
// (as opposed to merely referenced in content).
type TMSSignature struct {
	Name            string
	ContentPatterns []*regexp.Regexp
	RequestPatterns []*regexp.Regexp
	FiringPatterns  []*regexp.Regexp
}

func mustCompileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// CMPs is the ranked signature table for Consent Management Platforms.
var CMPs = []CMPSignature{
	{
		Name:            "Usercentrics",
		ContentPatterns: mustCompileAll(`usercentrics`, `uc-accept`, `#usercentrics`),
		RequestPatterns: mustCompileAll(`usercentrics\.eu`, `app\.usercentrics\.eu`),
	},
	{
		Name:            "OneTrust",
		ContentPatterns: mustCompileAll(`onetrust`, `optanon`, `ot-sdk`),
		RequestPatterns: mustCompileAll(`cdn\.cookielaw\.org`, `onetrust\.com`),
	},
	{
		Name:            "Cookiebot",
		ContentPatterns: mustCompileAll(`cookiebot`, `CookieConsent`),
		RequestPatterns: mustCompileAll(`consent\.cookiebot\.com`),
	},
	{
		Name:            "TrustArc",
		ContentPatterns: mustCompileAll(`trustarc`, `truste`),
		RequestPatterns: mustCompileAll(`consent\.trustarc\.com`),
	},
	{
		Name:            "Didomi",
		ContentPatterns: mustCompileAll(`didomi`),
		RequestPatterns: mustCompileAll(`sdk\.privacy-center\.org`, `api\.didomi\.io`),
	},
	{
		Name:            "Quantcast Choice",
		ContentPatterns: mustCompileAll(`__tcfapi`, `quantcast`),
		RequestPatterns: mustCompileAll(`quantcast\.mgr\.consensu\.org`),
	},
}

// TMSs is the signature table for Tag Management Systems. FiringPatterns
// are the strict network-evidence proof spec §4.5 requires before a TMS is
// declared "actually firing".
var TMSs = []TMSSignature{
	{
		Name:            "adobe_launch",
		ContentPatterns: mustCompileAll(`_satellite`, `adobeDataLayer`),
		RequestPatterns: mustCompileAll(`assets\.adobedtm\.com`),
		FiringPatterns: mustCompileAll(
			`assets\.adobedtm\.com/.*/launch-[\w-]+\.min\.js`,
			`assets\.adobedtm\.com/.*/AppMeasurement\.min\.js`,
			`assets\.adobedtm\.com/`,
		),
	},
	{
		Name:            "gtm",
		ContentPatterns: mustCompileAll(`dataLayer`, `gtag\(`, `googletagmanager`),
		RequestPatterns: mustCompileAll(`googletagmanager\.com`),
		FiringPatterns: mustCompileAll(
			`googletagmanager\.com/gtm\.js\?id=GTM-[A-Z0-9]+`,
		),
	},
	{
		Name:            "aep_web_sdk",
		ContentPatterns: mustCompileAll(`alloy\(`, `AlloyMonitor`),
		RequestPatterns: mustCompileAll(`edge\.adobedc\.net`),
	},
	{
		Name:            "tealium",
		ContentPatterns: mustCompileAll(`utag_data`, `utag\.js`),
		RequestPatterns: mustCompileAll(`tags\.tiqcdn\.com`),
	},
	{
		Name:            "segment",
		ContentPatterns: mustCompileAll(`analytics\.track\(`, `segment\.com/analytics\.js`),
		RequestPatterns: mustCompileAll(`cdn\.segment\.com`, `api\.segment\.io`),
	},
}

// TMSFixedPriority is the final fallback ordering of spec §4.5 step 4.
var TMSFixedPriority = []string{"adobe_launch", "aep_web_sdk", "tealium", "segment", "gtm"}

// DataLayerGlobals are the known page-global object names the runtime DOM
// probe checks for directly.
var DataLayerGlobals = []string{"dataLayer", "adobeDataLayer", "digitalData", "_satellite", "utag_data"}

// DataLayerGlobalPattern additionally matches window keys the direct list
// might miss (vendor-specific or minified globals).
var DataLayerGlobalPattern = regexp.MustCompile(`(?i)adobe|satellite|alloy|omtrdc|digitalData`)

// TrackingDomains flags known analytics/advertising endpoints; a pre-consent
// hit against one of these is what the scoring/audit layers call a
// "tracking request".
var TrackingDomains = mustCompileAll(
	`google-analytics\.com`,
	`googletagmanager\.com`,
	`doubleclick\.net`,
	`facebook\.com/tr`,
	`connect\.facebook\.net`,
	`analytics\.tiktok\.com`,
	`snap\.licdn\.com`,
	`px\.ads\.linkedin\.com`,
	`amazon-adsystem\.com`,
	`hotjar\.com`,
	`clarity\.ms`,
	`segment\.io`,
	`adobedtm\.com`,
	`omtrdc\.net`,
)

// PIIParamKeys are query/body parameter names whose presence on a
// pre-consent tracking request indicates PII-category exfiltration.
var PIIParamKeys = []string{"email", "uid", "user_id", "phone", "fbp", "fbc", "ga_client_id", "_fbp"}

// EEACountryCodes are ISO-3166 alpha-2 codes inside the European Economic
// Area.
var EEACountryCodes = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IS": true, "IE": true, "IT": true, "LV": true, "LI": true,
	"LT": true, "LU": true, "MT": true, "NL": true, "NO": true, "PL": true,
	"PT": true, "RO": true, "SK": true, "SI": true, "ES": true, "SE": true,
}

// AdequateCountryCodes are non-EEA jurisdictions covered by an EU adequacy
// decision.
var AdequateCountryCodes = map[string]bool{
	"GB": true, "CH": true, "CA": true, "JP": true, "KR": true, "NZ": true,
	"IL": true, "UY": true, "AD": true, "AR": true, "FO": true, "GG": true,
	"IM": true, "JE": true,
}

// VendorCountry maps well-known vendor domains directly to a home country,
// serving as the first lookup tier before a geo-IP call.
var VendorCountry = map[string]string{
	"google-analytics.com":   "US",
	"googletagmanager.com":   "US",
	"doubleclick.net":        "US",
	"connect.facebook.net":   "US",
	"facebook.com":           "US",
	"hotjar.com":             "IE",
	"clarity.ms":             "US",
	"assets.adobedtm.com":    "US",
	"tags.tiqcdn.com":        "US",
}

// AdequacyFor classifies a country code per spec §3 DataResidencyInfo.
func AdequacyFor(countryCode string) models.Adequacy {
	if countryCode == "" {
		return models.AdequacyUnknown
	}
	if EEACountryCodes[countryCode] {
		return models.AdequacyEEA
	}
	if AdequateCountryCodes[countryCode] {
		return models.AdequacyAdequate
	}
	return models.AdequacyNonAdequate
}
