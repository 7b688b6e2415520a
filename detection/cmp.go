// Package detection implements evidence-scored CMP/TMS/data-layer
// detection over page content, the merged request stream, and a runtime
// DOM probe, with an AI-HTML fallback when signal is weak.
package detection

import (
	"sort"

	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/signatures"
)

const (
	cmpContentWeight = 2
	cmpRequestWeight = 3
	highThreshold    = 5
	mediumThreshold  = 3
)

type candidate struct {
	name     string
	score    int
	evidence []models.DetectionEvidence
}

// DetectCMP scores every known CMP signature against page content and the
// merged request stream, per spec §4.5: content match x2, request match
// x3; any positive score enters "detected"; primary is the highest score;
// confidence is high >= 5, medium >= 3, else low; none if no positives.
func DetectCMP(html string, requests []models.CapturedRequest) models.DetectionResult {
	var candidates []candidate

	for _, sig := range signatures.CMPs {
		c := candidate{name: sig.Name}
		for _, p := range sig.ContentPatterns {
			if p.MatchString(html) {
				c.score += cmpContentWeight
				c.evidence = append(c.evidence, models.DetectionEvidence{
					Kind: models.EvidenceContent, Pattern: p.String(), Weight: cmpContentWeight,
				})
			}
		}
		for _, req := range requests {
			for _, p := range sig.RequestPatterns {
				if p.MatchString(req.URL) {
					c.score += cmpRequestWeight
					c.evidence = append(c.evidence, models.DetectionEvidence{
						Kind: models.EvidenceNetwork, Pattern: p.String(), Locator: req.URL, Weight: cmpRequestWeight,
					})
				}
			}
		}
		if c.score > 0 {
			candidates = append(candidates, c)
		}
	}

	return resultFromCandidates(candidates)
}

func resultFromCandidates(candidates []candidate) models.DetectionResult {
	if len(candidates) == 0 {
		return models.DetectionResult{Primary: "none", Confidence: models.ConfidenceLow}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	detected := make([]string, 0, len(candidates))
	var evidence []models.DetectionEvidence
	for _, c := range candidates {
		detected = append(detected, c.name)
		evidence = append(evidence, c.evidence...)
	}

	top := candidates[0]
	confidence := models.ConfidenceLow
	switch {
	case top.score >= highThreshold:
		confidence = models.ConfidenceHigh
	case top.score >= mediumThreshold:
		confidence = models.ConfidenceMedium
	}

	return models.DetectionResult{
		Detected:   detected,
		Primary:    top.name,
		Confidence: confidence,
		Evidence:   evidence,
	}
}
