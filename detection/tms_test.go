package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/consent-core/models"
)

func TestAdobeLaunchFiringBeatsGTMContentOnly(t *testing.T) {
	html := `<script>dataLayer.push({event:'pageview'});</script>`
	requests := []models.CapturedRequest{
		{URL: "https://assets.adobedtm.com/launchXYZ/launch-abcdef012345.min.js", TSeen: 10 * time.Millisecond},
	}

	result := DetectTMS(html, requests)

	assert.Contains(t, result.Detected, "adobe_launch")
	assert.Contains(t, result.Detected, "gtm")
	assert.Equal(t, "adobe_launch", result.Primary, "Adobe Launch firing must win even with GTM content patterns present")
}

func TestGTMNotPrimaryFromContentAlone(t *testing.T) {
	html := `<script>dataLayer.push({}); gtag('config','X');</script>`
	result := DetectTMS(html, nil)

	if len(result.Detected) > 0 {
		assert.NotEqual(t, "gtm", result.Primary, "bare dataLayer/gtag content must not crown GTM primary")
	}
}

func TestGTMFiringWinsWhenContainerObserved(t *testing.T) {
	requests := []models.CapturedRequest{
		{URL: "https://www.googletagmanager.com/gtm.js?id=GTM-ABC123", TSeen: 5 * time.Millisecond},
	}
	result := DetectTMS("", requests)
	assert.Equal(t, "gtm", result.Primary)
}
