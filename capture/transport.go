// Package capture implements the four independent interception layers of
// the network-capture design: each can be blocked independently by the
// page, so their union is what the scan actually sees.
package capture

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/consent-core/models"
)

const bodySnippetLimit = 4 * 1024

// TransportLayer records every outbound request via the page's hijack
// router without blocking any of them — detection depends on the tracker
// call actually firing pre-consent, so nothing here is ever failed.
type TransportLayer struct {
	navStart time.Time
	router   *rod.HijackRouter
	out      chan<- models.CapturedRequest
}

// InstallTransport mounts a pass-through hijack router that timestamps and
// forwards every request to out before continuing it unmodified.
func InstallTransport(page *rod.Page, navStart time.Time, out chan<- models.CapturedRequest) *TransportLayer {
	t := &TransportLayer{navStart: navStart, out: out}
	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		t.record(ctx)
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	t.router = router
	go router.Run()
	return t
}

func (t *TransportLayer) record(ctx *rod.Hijack) {
	headers := make(map[string]string, len(ctx.Request.Headers()))
	for k, v := range ctx.Request.Headers() {
		headers[k] = v.String()
	}

	var snippet string
	if body := ctx.Request.Body(); body != "" {
		if len(body) > bodySnippetLimit {
			snippet = body[:bodySnippetLimit]
		} else {
			snippet = body
		}
	}

	rec := models.CapturedRequest{
		URL:          ctx.Request.URL().String(),
		Method:       ctx.Request.Method(),
		Headers:      headers,
		BodySnippet:  snippet,
		ResourceType: string(ctx.Request.Type()),
		TSeen:        time.Since(t.navStart),
		Source:       models.SourceTransport,
	}

	select {
	case t.out <- rec:
	default:
	}
}

// Stop halts the hijack router; safe to call once per layer.
func (t *TransportLayer) Stop() {
	if t.router != nil {
		_ = t.router.Stop()
	}
}
