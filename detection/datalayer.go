package detection

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/consent-core/browser"
	"github.com/use-agent/consent-core/signatures"
)

const probeScript = `() => {
	const found = [];
	const known = ['dataLayer', 'adobeDataLayer', 'digitalData', '_satellite', 'utag_data'];
	for (const k of known) {
		if (window[k] !== undefined) found.push(k);
	}
	for (const k of Object.keys(window)) {
		if (/adobe|satellite|alloy|omtrdc|digitalData/i.test(k) && !found.includes(k)) {
			found.push(k);
		}
	}
	for (const k of (window.__dataLayerSnapshots || [])) {
		if (!found.includes(k)) found.push(k);
	}
	return found;
}`

// ProbeDataLayers runs the runtime DOM probe once the page is settled,
// including the names the script rewriter's stub recorded in
// window.__dataLayerSnapshots. If the probe returns empty but signatures
// matched in content, the caller should re-probe via ReprobeIfEmpty.
func ProbeDataLayers(page *rod.Page) []string {
	res, err := page.Eval(probeScript)
	if err != nil {
		return nil
	}
	arr := res.Value.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out
}

// ReprobeIfEmpty re-runs the probe after a jittered delay when the first
// pass found nothing but content signatures suggested a data layer exists.
func ReprobeIfEmpty(ctx context.Context, page *rod.Page, first []string, contentSuggestsDataLayer bool, baseDelay time.Duration) []string {
	if len(first) > 0 || !contentSuggestsDataLayer {
		return first
	}
	delay := browser.JitterDelay(baseDelay, 0.3)
	select {
	case <-ctx.Done():
		return first
	case <-time.After(delay):
	}
	return ProbeDataLayers(page)
}

// ContentSuggestsDataLayer reports whether any known data-layer global name
// appears verbatim in the page HTML, used to gate ReprobeIfEmpty.
func ContentSuggestsDataLayer(html string) bool {
	for _, name := range signatures.DataLayerGlobals {
		if strings.Contains(html, name) {
			return true
		}
	}
	return signatures.DataLayerGlobalPattern.MatchString(html)
}
