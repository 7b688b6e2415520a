package signatures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/consent-core/models"
)

func TestAdequacyForClassifiesKnownBuckets(t *testing.T) {
	assert.Equal(t, models.AdequacyEEA, AdequacyFor("DE"))
	assert.Equal(t, models.AdequacyAdequate, AdequacyFor("GB"))
	assert.Equal(t, models.AdequacyNonAdequate, AdequacyFor("US"))
	assert.Equal(t, models.AdequacyUnknown, AdequacyFor(""))
}

func TestAdobeLaunchFiringPatternMatchesLaunchScript(t *testing.T) {
	var adobe TMSSignature
	for _, t := range TMSs {
		if t.Name == "adobe_launch" {
			adobe = t
		}
	}
	url := "https://assets.adobedtm.com/launchXYZ/launch-abcdef012345.min.js"
	matched := false
	for _, p := range adobe.FiringPatterns {
		if p.MatchString(url) {
			matched = true
		}
	}
	assert.True(t, matched)
}
