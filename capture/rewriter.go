package capture

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const maxRewriteSize = 100 * 1024

// dataLayerSnapshotStub is prepended to qualifying scripts so that, before
// the original script runs, the page's data-layer globals are captured
// even if the script later clears or replaces them.
const dataLayerSnapshotStub = `(() => {
	window.__dataLayerSnapshots = window.__dataLayerSnapshots || [];
	const names = ['dataLayer', 'adobeDataLayer', 'digitalData', 'utag_data'];
	for (const n of names) {
		if (window[n] !== undefined) {
			window.__dataLayerSnapshots.push(n);
		}
	}
})();
`

// RewriterLayer is the fourth capture layer: it hijacks script responses
// and prepends a data-layer snapshot stub to any script ≤100KB, leaving
// larger scripts untouched.
type RewriterLayer struct {
	router *rod.HijackRouter
}

// InstallRewriter mounts a script-only hijack router that rewrites bodies
// in place. It records nothing itself — the snapshot stub's findings are
// read back via the runtime DOM probe in the detection package.
func InstallRewriter(page *rod.Page) *RewriterLayer {
	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if ctx.Request.Type() != proto.NetworkResourceTypeScript {
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}
		ctx.MustLoadResponse()
		body := ctx.Response.Body()
		if len(body) > maxRewriteSize {
			return
		}
		ctx.Response.SetBody(dataLayerSnapshotStub + body)
	})
	go router.Run()
	return &RewriterLayer{router: router}
}

func (r *RewriterLayer) Stop() {
	if r.router != nil {
		_ = r.router.Stop()
	}
}
