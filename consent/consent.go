// Package consent locates and activates a page's consent-banner control,
// recording the click timestamp the rest of the scan classifies requests
// against.
package consent

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/consent-core/browser"
	"github.com/use-agent/consent-core/models"
)

// rankedSelectors is tried in order, most specific first, per spec §4.4.
var rankedSelectors = []string{
	`button[id*=uc-accept]`,
	`button[data-testid*=accept]`,
	`#usercentrics button`,
	`button[id*=onetrust-accept]`,
	`#onetrust-accept-btn-handler`,
	`button[class*="accept-all"]`,
	`button[class*="acceptAll"]`,
}

// textFallbackPhrases is scanned against lowercased element text when no
// selector matches.
var textFallbackPhrases = []string{"alles akzeptieren", "accept all", "akzeptieren"}

const maxFallbackTextLen = 50

var errNoFallbackMatch = errors.New("no accept control matched ranked selectors or text fallback")

// Locate finds the accept control via the ranked selector list, falling
// back to a text scan over role=button elements. Returns
// BANNER_NOT_FOUND if nothing qualifies.
func Locate(page *rod.Page) (*rod.Element, error) {
	for _, sel := range rankedSelectors {
		if el, err := page.Timeout(500 * time.Millisecond).Element(sel); err == nil && el != nil {
			return el, nil
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, models.NewScanError(models.ErrBannerNotFound, "could not read page HTML for fallback scan", err)
	}
	bestSelector, err := findFallbackSelector(html)
	if err != nil {
		return nil, models.NewScanError(models.ErrBannerNotFound, err.Error(), nil)
	}
	el, err := page.Element(bestSelector)
	if err != nil {
		return nil, models.NewScanError(models.ErrBannerNotFound, "fallback selector did not resolve on the live page", err)
	}
	return el, nil
}

// findFallbackSelector picks the shortest button whose lowercased text
// contains one of textFallbackPhrases and is under maxFallbackTextLen,
// returning a CSS selector for its id. Pulled out of Locate as a pure
// function so the text-scan heuristic is testable without a live page.
func findFallbackSelector(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var bestSelector string
	bestLen := maxFallbackTextLen + 1
	doc.Find(`[role=button], button`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if len(text) == 0 || len(text) >= maxFallbackTextLen {
			return
		}
		for _, phrase := range textFallbackPhrases {
			if strings.Contains(text, phrase) && len(text) < bestLen {
				if id, ok := sel.Attr("id"); ok && id != "" {
					bestSelector = "#" + id
					bestLen = len(text)
				}
			}
		}
	})

	if bestSelector == "" {
		return "", errNoFallbackMatch
	}
	return bestSelector, nil
}

// WaitVisible polls visibility for up to timeout, checking every attempt
// duration, per spec §4.4 (5s / 2s per attempt).
func WaitVisible(el *rod.Element, timeout, attempt time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if visible, err := el.Visible(); err == nil && visible {
			return true
		}
		time.Sleep(attempt)
	}
	visible, err := el.Visible()
	return err == nil && visible
}

// Click performs a human-paced click, falling back to a synthetic script
// click as a last resort, per spec §4.4.
func Click(el *rod.Element) error {
	time.Sleep(browser.JitterDelay(400*time.Millisecond, 0.6))
	if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
		return nil
	}
	_, err := el.Eval(`() => this.click()`)
	if err != nil {
		return models.NewScanError(models.ErrBannerNotClickable, "accept control could not be clicked", err)
	}
	return nil
}

// Box mirrors the width/height of an element's rendered bounding box, the
// shape the symmetry audit compares between accept and reject controls.
type Box struct {
	Width, Height float64
}

// Result captures the outcome of the interaction phase.
type Result struct {
	ClickedAt  *time.Duration
	ScanNote   string
	BannerHTML string
	AcceptBox  *Box
	RejectBox  *Box
}

// bannerAncestorSelector widens from the accept control to its banner
// container so the audit module can scan the whole banner's text and
// toggles rather than just the clicked button.
const bannerAncestorSelector = `() => {
	const markers = ['cookie', 'consent', 'gdpr', 'privacy'];
	let node = this;
	for (let i = 0; i < 6 && node; i++) {
		const id = (node.id || '').toLowerCase();
		const cls = (node.className || '').toString().toLowerCase();
		if (markers.some(m => id.includes(m) || cls.includes(m))) {
			return node.outerHTML;
		}
		node = node.parentElement;
	}
	return this.outerHTML;
}`

// describe best-effort captures an element's banner-scoped outer HTML and
// bounding box; failures are swallowed since this is supplementary
// evidence, not the interaction itself.
func describe(el *rod.Element) (string, *Box) {
	var html string
	if res, err := el.Eval(bannerAncestorSelector); err == nil {
		html = res.Value.Str()
	}
	var box *Box
	if shape, err := el.Shape(); err == nil {
		b := shape.Box()
		box = &Box{Width: b.Width, Height: b.Height}
	}
	return html, box
}

// locateReject best-effort finds a first-layer reject control for the
// symmetry comparison; absence is not an error here, since
// CheckParityOfEase is what actually reports a missing reject control.
func locateReject(page *rod.Page) *rod.Element {
	for _, sel := range []string{
		`button[id*=uc-deny]`, `button[id*=reject]`, `button[class*=reject]`, `button[class*=decline]`,
	} {
		if el, err := page.Timeout(300 * time.Millisecond).Element(sel); err == nil && el != nil {
			return el
		}
	}
	return nil
}

// Interact drives locate -> wait -> click -> verify for standard mode. In
// gpc mode the interactor never clicks and returns an empty Result at
// once; any waiting happens in the caller.
func Interact(page *rod.Page, navStart time.Time, mode models.ScanMode, waitTimeout, waitAttempt time.Duration) Result {
	if mode == models.ModeGPC {
		return Result{}
	}

	el, err := Locate(page)
	if err != nil {
		return Result{ScanNote: "consent not accepted: " + err.Error()}
	}
	if !WaitVisible(el, waitTimeout, waitAttempt) {
		return Result{ScanNote: "consent not accepted: accept control never became visible"}
	}

	bannerHTML, acceptBox := describe(el)
	var rejectBox *Box
	if rejectEl := locateReject(page); rejectEl != nil {
		_, rejectBox = describe(rejectEl)
	}

	if err := Click(el); err != nil {
		return Result{ScanNote: "consent not accepted: " + err.Error(), BannerHTML: bannerHTML, AcceptBox: acceptBox, RejectBox: rejectBox}
	}

	clickedAt := time.Since(navStart)
	return Result{ClickedAt: &clickedAt, BannerHTML: bannerHTML, AcceptBox: acceptBox, RejectBox: rejectBox}
}
