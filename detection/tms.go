package detection

import (
	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/signatures"
)

const (
	tmsNetworkWeight = 3
	tmsContentWeight = 1
)

// DetectTMS implements spec §4.5's strict firing guards: a TMS is declared
// "actually firing" only when its network container script is observed,
// and GTM must never be crowned primary merely because dataLayer/gtag
// patterns appear in content.
func DetectTMS(html string, requests []models.CapturedRequest) models.DetectionResult {
	firing := make(map[string]bool)
	var candidates []candidate

	for _, sig := range signatures.TMSs {
		c := candidate{name: sig.Name}
		for _, p := range sig.ContentPatterns {
			if p.MatchString(html) {
				c.score += tmsContentWeight
				c.evidence = append(c.evidence, models.DetectionEvidence{
					Kind: models.EvidenceContent, Pattern: p.String(), Weight: tmsContentWeight,
				})
			}
		}
		for _, req := range requests {
			for _, p := range sig.RequestPatterns {
				if p.MatchString(req.URL) {
					c.score += tmsNetworkWeight
					c.evidence = append(c.evidence, models.DetectionEvidence{
						Kind: models.EvidenceNetwork, Pattern: p.String(), Locator: req.URL, Weight: tmsNetworkWeight,
					})
				}
			}
			for _, p := range sig.FiringPatterns {
				if p.MatchString(req.URL) {
					firing[sig.Name] = true
				}
			}
		}
		if c.score > 0 {
			candidates = append(candidates, c)
		}
	}

	result := resultFromCandidates(candidates)
	if len(candidates) == 0 {
		return result
	}

	// Priority overrides: firing status trumps raw score.
	switch {
	case firing["adobe_launch"]:
		result.Primary = "adobe_launch"
	case firing["gtm"]:
		result.Primary = "gtm"
	default:
		// Step 3: highest score among the eligible TMSes. GTM with no
		// network evidence (seen only via the shared dataLayer/gtag content
		// names) is not eligible, so it never wins on borrowed vocabulary.
		eligible := make([]candidate, 0, len(candidates))
		for _, c := range candidates {
			if c.name == "gtm" && !hasNetworkEvidence(c) {
				continue
			}
			eligible = append(eligible, c)
		}
		if best := highestScoring(eligible); best != "" {
			result.Primary = best
		} else if fallback := fixedPriorityPick(eligible); fallback != "" {
			// Step 4: nothing scored — fall back to the fixed order.
			result.Primary = fallback
		} else {
			result.Primary = "none"
		}
	}

	return result
}

func hasNetworkEvidence(c candidate) bool {
	for _, e := range c.evidence {
		if e.Kind == models.EvidenceNetwork {
			return true
		}
	}
	return false
}

func highestScoring(candidates []candidate) string {
	var best string
	bestScore := 0
	for _, c := range candidates {
		if c.score > bestScore {
			best, bestScore = c.name, c.score
		}
	}
	return best
}

func fixedPriorityPick(candidates []candidate) string {
	detected := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		detected[c.name] = true
	}
	for _, name := range signatures.TMSFixedPriority {
		if detected[name] {
			return name
		}
	}
	return ""
}
