// Package browser owns the anti-detection Chrome session: launch
// descriptor, stealth init scripts, and the one page per scan the rest of
// the orchestrator drives. One Session is opened and closed per scan — no
// pooling, since each scan needs an isolated profile.
package browser

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/consent-core/config"
	"github.com/use-agent/consent-core/models"
)

// desktopChromeUA is sent to look like a real desktop browser rather than
// the default headless Chrome user agent.
const desktopChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// additionalMaskJS covers the navigator checks stealth.JS does not address:
// an explicit chrome global and a permissions.query override that always
// reports "granted" for notifications, matching a real opted-in profile.
const additionalMaskJS = `(() => {
	if (!window.chrome) {
		window.chrome = { runtime: {} };
	}
	const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
	if (originalQuery) {
		window.navigator.permissions.query = (parameters) => (
			parameters && parameters.name === 'notifications'
				? Promise.resolve({ state: 'granted' })
				: originalQuery(parameters)
		);
	}
})();`

// Session wraps one scan's browser, page, and anti-detection setup.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	mode    models.ScanMode
}

// New launches a fresh headless Chrome, opens one page, and installs the
// stealth + supplemental masking scripts before any navigation happens.
func New(ctx context.Context, cfg config.BrowserConfig, mode models.ScanMode) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewFatalScanError(models.ErrBrowserLaunchFailed, "failed to launch browser", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewFatalScanError(models.ErrBrowserLaunchFailed, "failed to connect to browser", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.MustClose()
		return nil, models.NewFatalScanError(models.ErrBrowserLaunchFailed, "failed to open page", err)
	}

	s := &Session{browser: b, page: page.Context(ctx), mode: mode}
	if err := s.applyAntiDetection(); err != nil {
		slog.Warn("anti-detection setup degraded", "error", err)
	}
	return s, nil
}

func (s *Session) applyAntiDetection() error {
	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		return err
	}
	if _, err := s.page.EvalOnNewDocument(additionalMaskJS); err != nil {
		return err
	}

	headers := map[string]string{
		"User-Agent":      desktopChromeUA,
		"Accept-Language": "en-US,en;q=0.9",
	}
	if s.mode == models.ModeGPC {
		headers["Sec-GPC"] = "1"
	}
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return proto.NetworkSetExtraHTTPHeaders{Headers: m}.Call(s.page)
}

// Page exposes the underlying rod page for navigation, evaluation, and
// interaction by the capture and consent packages.
func (s *Session) Page() *rod.Page { return s.page }

// AddInitScript installs a document-start script; capture layers use this
// to install their monkey-patches before any page script runs.
func (s *Session) AddInitScript(src string) error {
	_, err := s.page.EvalOnNewDocument(src)
	return err
}

// Navigate drives the page to url, classifying timeout/abort errors per
// spec §7.
func (s *Session) Navigate(targetURL string) error {
	if _, err := url.Parse(targetURL); err != nil {
		return models.NewScanError(models.ErrNavAborted, "invalid URL", err)
	}
	if err := s.page.Navigate(targetURL); err != nil {
		return categorizeNavError(err)
	}
	return nil
}

func categorizeNavError(err error) *models.ScanError {
	msg := err.Error()
	if deadlineLike(msg) {
		return models.NewScanError(models.ErrNavTimeout, "navigation timed out", err)
	}
	return models.NewScanError(models.ErrNavAborted, "navigation aborted", err)
}

func deadlineLike(msg string) bool {
	for _, sub := range []string{"deadline exceeded", "context deadline", "timeout"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

// WaitSettled waits for the DOM to stabilize, the teacher's fallback
// strategy when request-idle waiting conflicts with the Fetch-domain
// capture layers.
func (s *Session) WaitSettled() {
	if err := s.page.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
}

// HTML returns the fully rendered page HTML.
func (s *Session) HTML() (string, error) {
	html, err := s.page.HTML()
	if err != nil {
		return "", categorizeNavError(err)
	}
	return html, nil
}

// Screenshot captures a full-page PNG.
func (s *Session) Screenshot() ([]byte, error) {
	return s.page.Screenshot(true, nil)
}

// Eval runs a JS expression, returning its value or swallowing benign
// context-teardown errors.
func (s *Session) Eval(js string) (gson.JSON, error) {
	res, err := s.page.Eval(js)
	if err != nil {
		if models.IsBenignCaptureError(err) {
			return gson.JSON{}, nil
		}
		return gson.JSON{}, err
	}
	return res.Value, nil
}

// Close tears down the page and browser process.
func (s *Session) Close() {
	_ = s.page.Close()
	s.browser.MustClose()
}
