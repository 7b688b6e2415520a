package capture

import (
	"context"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/consent-core/models"
)

// swInitScript registers a blob-URL service worker that relays every fetch
// event back to the page via postMessage, independent of the main-thread
// fetch/XHR patch so a page that bypasses window.fetch is still observed.
const swInitScript = `(() => {
	if (!('serviceWorker' in navigator)) return;
	window.__swRequests = window.__swRequests || [];
	navigator.serviceWorker.addEventListener('message', (event) => {
		if (event.data && event.data.type === 'SW_REQUEST') {
			window.__swRequests.push(event.data.data);
		}
	});
	const workerSrc = "self.addEventListener('fetch', (e) => { self.clients.matchAll().then((cs) => { cs.forEach((c) => c.postMessage({type:'SW_REQUEST', data:{url: e.request.url, method: e.request.method, t: Date.now()}})); }); });";
	const blob = new Blob([workerSrc], { type: 'application/javascript' });
	const blobURL = URL.createObjectURL(blob);
	navigator.serviceWorker.register(blobURL).catch(() => {});
})();`

const swDrainScript = `() => {
	const out = window.__swRequests || [];
	window.__swRequests = [];
	return out;
}`

// InstallServiceWorker registers the relay worker before navigation.
func InstallServiceWorker(session InitScriptInstaller) error {
	return session.AddInitScript(swInitScript)
}

// PollServiceWorker mirrors PollInPage against the SW relay buffer.
func PollServiceWorker(ctx context.Context, page *rod.Page, navStart time.Time, interval time.Duration, out chan<- models.CapturedRequest) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drainInto(page, navStart, swDrainScript, models.SourceSW, out)
		}
	}
}
