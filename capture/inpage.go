package capture

import (
	"context"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/consent-core/models"
)

// inPageInitScript wraps fetch and XHR before any page script runs, pushing
// record objects onto window.__inPageRequests. Templated as a constant per
// the design notes rather than built with call-site string concatenation.
const inPageInitScript = `(() => {
	window.__inPageRequests = window.__inPageRequests || [];
	const push = (url, method) => {
		try {
			window.__inPageRequests.push({ url: String(url), method: method || 'GET', t: Date.now() });
		} catch (e) {}
	};
	const originalFetch = window.fetch;
	if (originalFetch) {
		window.fetch = function(input, init) {
			const url = typeof input === 'string' ? input : (input && input.url);
			push(url, init && init.method);
			return originalFetch.apply(this, arguments);
		};
	}
	const OriginalXHR = window.XMLHttpRequest;
	if (OriginalXHR) {
		const originalOpen = OriginalXHR.prototype.open;
		OriginalXHR.prototype.open = function(method, url) {
			push(url, method);
			return originalOpen.apply(this, arguments);
		};
	}
})();`

// pollDrainScript returns and clears the buffer so repeated polls never
// re-report the same record.
const pollDrainScript = `() => {
	const out = window.__inPageRequests || [];
	window.__inPageRequests = [];
	return out;
}`

// InitScriptInstaller is satisfied by *browser.Session; kept as an
// interface here so capture has no import-time dependency on how the
// session is constructed.
type InitScriptInstaller interface {
	AddInitScript(string) error
}

// InstallInPage installs the fetch/XHR monkey-patch before navigation.
func InstallInPage(session InitScriptInstaller) error {
	return session.AddInitScript(inPageInitScript)
}

// PollInPage polls page every interval for newly pushed records until ctx
// is cancelled, forwarding each to out. Evaluation errors, including
// context teardown during navigation, are swallowed; a closed page does
// not end the loop by itself, only cancellation of ctx does.
func PollInPage(ctx context.Context, page *rod.Page, navStart time.Time, interval time.Duration, out chan<- models.CapturedRequest) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drainInto(page, navStart, pollDrainScript, models.SourceInPage, out)
		}
	}
}

// drainInto evaluates a drain script returning an array of {url, method, t}
// records and forwards them tagged with source.
func drainInto(page *rod.Page, navStart time.Time, script string, source models.CaptureSource, out chan<- models.CapturedRequest) {
	res, err := page.Eval(script)
	if err != nil {
		// IsBenignCaptureError covers context-destroyed during navigation;
		// anything else is still swallowed here since polling must never
		// abort the scan, but would be worth a debug log in production.
		return
	}
	arr := res.Value.Arr()
	for _, item := range arr {
		rec := models.CapturedRequest{
			URL:          item.Get("url").Str(),
			Method:       item.Get("method").Str(),
			ResourceType: "xhr",
			TSeen:        time.Since(navStart),
			Source:       source,
		}
		select {
		case out <- rec:
		default:
		}
	}
}
