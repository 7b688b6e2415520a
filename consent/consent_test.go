package consent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFallbackSelectorMatchesKnownPhrase(t *testing.T) {
	html := `<html><body><button id="x1" role="button">Accept All</button></body></html>`
	sel, err := findFallbackSelector(html)
	assert.NoError(t, err)
	assert.Equal(t, "#x1", sel)
}

func TestFindFallbackSelectorRejectsUnlistedPhrase(t *testing.T) {
	// "Zustimmen" is not in textFallbackPhrases, per scenario S4.
	html := `<html><body><button id="x1" role="button">Zustimmen</button></body></html>`
	_, err := findFallbackSelector(html)
	assert.Error(t, err)
}

func TestFindFallbackSelectorPrefersShortestMatch(t *testing.T) {
	html := `<html><body>
		<button id="long" role="button">Please Accept All Cookies Now</button>
		<button id="short" role="button">Accept All</button>
	</body></html>`
	sel, err := findFallbackSelector(html)
	assert.NoError(t, err)
	assert.Equal(t, "#short", sel)
}
