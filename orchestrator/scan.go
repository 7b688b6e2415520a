// Package orchestrator drives the single-page, single-session scan state
// machine: Init → CacheCheck → LaunchBrowser → InstallCapture → Navigate →
// ClassifyPageAvailable → LocateBanner → InteractConsent → PostConsentWait
// → ExtractArtifacts → RunDetection → RunAudits → Score → BuildCertificate
// → Cache → Done. Any recoverable phase error routes to ExtractArtifacts
// with a partial result and a scanNote; a fatal error aborts the scan.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/consent-core/audit"
	"github.com/use-agent/consent-core/browser"
	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/capture"
	"github.com/use-agent/consent-core/config"
	"github.com/use-agent/consent-core/consent"
	"github.com/use-agent/consent-core/detection"
	"github.com/use-agent/consent-core/geoip"
	"github.com/use-agent/consent-core/llm"
	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/scoring"
	"github.com/use-agent/consent-core/webhook"
)

// Dependencies bundles every shared, process-wide collaborator a scan
// needs. A single instance is built once at startup and reused across
// scans; only the per-scan browser.Session is scan-scoped.
type Dependencies struct {
	Config      *config.Config
	ResultCache *cache.TTLCache[models.ScanResult]
	AICache     *cache.TTLCache[models.DetectionResult]
	GeoIP       *geoip.Resolver
	LLMClient   *llm.Client

	// LaunchSession is a seam for tests; production wiring sets it to
	// browser.New.
	LaunchSession func(ctx context.Context, cfg config.BrowserConfig, mode models.ScanMode) (*browser.Session, error)
}

// Scanner runs scans against shared Dependencies.
type Scanner struct {
	deps Dependencies
}

func New(deps Dependencies) *Scanner {
	if deps.LaunchSession == nil {
		deps.LaunchSession = browser.New
	}
	return &Scanner{deps: deps}
}

// Scan executes the full state machine for one request, returning a
// terminal ScanResult even on recoverable failure (scanNote explains the
// degradation) or a fatal error when the browser itself could not launch.
func (s *Scanner) Scan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	req.Defaults()

	if !req.ForceRefresh {
		if cached, ok := s.deps.ResultCache.Get(cache.NormalizeURL(req.URL)); ok {
			slog.Info("scan cache hit", "url", req.URL)
			result := cached
			return &result, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, models.NewFatalScanError(models.ErrCancelled, "scan cancelled before launch", err)
	}

	scanID := uuid.New().String()
	startedAt := time.Now()
	metrics := models.PerformanceMetrics{}

	session, err := s.timedLaunch(ctx, req.Mode, metrics)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	result := &models.ScanResult{
		URL:       req.URL,
		ScanID:    scanID,
		StartedAt: startedAt,
		Mode:      req.Mode,
	}

	navStart := time.Now()
	timeline := models.ConsentTimeline{NavStart: navStart, Mode: req.Mode}
	harness := capture.NewHarness(2048)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	s.installCapture(pollCtx, session, navStart, harness, metrics)

	if err := s.navigate(ctx, session, req.URL, metrics); err != nil {
		return s.degrade(ctx, result, &timeline, session, harness, metrics, err)
	}

	session.WaitSettled()

	result.ScreenshotBefore = s.captureScreenshot(session)

	interaction, err := s.interactConsent(session, &timeline, metrics)
	if err != nil {
		slog.Warn("consent interaction degraded", "url", req.URL, "error", err)
		result.ScanNote = err.Error()
	}

	s.waitNetworkIdle(ctx, harness, metrics)

	s.finish(ctx, result, &timeline, session, harness, interaction, metrics)
	return result, nil
}

func (s *Scanner) timedLaunch(ctx context.Context, mode models.ScanMode, metrics models.PerformanceMetrics) (*browser.Session, error) {
	start := time.Now()
	session, err := s.deps.LaunchSession(ctx, s.deps.Config.Browser, mode)
	metrics["launchBrowser"] = time.Since(start)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Scanner) installCapture(ctx context.Context, session *browser.Session, navStart time.Time, harness *capture.Harness, metrics models.PerformanceMetrics) {
	start := time.Now()
	page := session.Page()

	capture.InstallTransport(page, navStart, harness.Chan())
	_ = capture.InstallInPage(session)
	_ = capture.InstallServiceWorker(session)
	capture.InstallRewriter(page)

	interval := s.deps.Config.Orchestrator.InPagePollInterval
	go capture.PollInPage(ctx, page, navStart, interval, harness.Chan())
	go capture.PollServiceWorker(ctx, page, navStart, interval, harness.Chan())

	metrics["installCapture"] = time.Since(start)
}

func (s *Scanner) navigate(ctx context.Context, session *browser.Session, url string, metrics models.PerformanceMetrics) error {
	start := time.Now()
	navCtx, cancel := context.WithTimeout(ctx, s.deps.Config.Orchestrator.NavigationTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- session.Navigate(url) }()

	select {
	case err := <-errCh:
		metrics["navigate"] = time.Since(start)
		return err
	case <-navCtx.Done():
		metrics["navigate"] = time.Since(start)
		return models.NewScanError(models.ErrNavTimeout, "navigation did not complete in time", navCtx.Err())
	}
}

func (s *Scanner) interactConsent(session *browser.Session, timeline *models.ConsentTimeline, metrics models.PerformanceMetrics) (consent.Result, error) {
	start := time.Now()
	defer func() { metrics["interactConsent"] = time.Since(start) }()

	cfg := s.deps.Config.Orchestrator
	result := consent.Interact(session.Page(), timeline.NavStart, timeline.Mode, cfg.BannerWaitTimeout, cfg.BannerWaitAttempt)
	if result.ClickedAt != nil {
		timeline.ConsentClickAt = result.ClickedAt
		now := time.Since(timeline.NavStart)
		timeline.PostConsentIdleAt = &now
	}
	if result.ScanNote != "" {
		return result, models.NewScanError(models.ErrBannerNotFound, result.ScanNote, nil)
	}
	return result, nil
}

// waitNetworkIdle polls the capture harness until no new record arrives
// within the idle window, bounded by [min,max] wait per spec §4.1's
// suspension points.
func (s *Scanner) waitNetworkIdle(ctx context.Context, harness *capture.Harness, metrics models.PerformanceMetrics) {
	start := time.Now()
	defer func() { metrics["networkIdle"] = time.Since(start) }()

	cfg := s.deps.Config.Orchestrator
	deadline := time.Now().Add(cfg.NetworkIdleMaxWait)
	minDeadline := time.Now().Add(cfg.NetworkIdleMinWait)
	lastSize := -1
	ticker := time.NewTicker(cfg.NetworkIdleWindow)
	defer ticker.Stop()

	for {
		harness.Drain()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			size := len(harness.Merge())
			if time.Now().After(minDeadline) && size == lastSize {
				return
			}
			lastSize = size
			if time.Now().After(deadline) {
				return
			}
		}
	}
}

// degrade builds a partial ScanResult for a recoverable failure that
// aborted navigation or earlier, per spec §7's degraded-path contract.
func (s *Scanner) degrade(ctx context.Context, result *models.ScanResult, timeline *models.ConsentTimeline, session *browser.Session, harness *capture.Harness, metrics models.PerformanceMetrics, cause error) (*models.ScanResult, error) {
	if scanErr, ok := cause.(*models.ScanError); ok && !scanErr.Recoverable {
		return nil, scanErr
	}

	result.ScanNote = cause.Error()
	result.PerformanceMetrics = metrics
	result.FinishedAt = time.Now()
	result.Requests = BuildRequestLogs(ctx, harness.Merge(), *timeline, s.residencyLookup(), false)
	result.RiskScore = 40
	result.Grade = scoring.Grade(result.RiskScore)
	return result, nil
}

func (s *Scanner) finish(ctx context.Context, result *models.ScanResult, timeline *models.ConsentTimeline, session *browser.Session, harness *capture.Harness, interaction consent.Result, metrics models.PerformanceMetrics) {
	extractStart := time.Now()
	html, err := session.HTML()
	if err != nil {
		slog.Warn("HTML extraction degraded", "error", err)
	}

	dataLayers := detection.ProbeDataLayers(session.Page())
	dataLayers = detection.ReprobeIfEmpty(ctx, session.Page(), dataLayers, detection.ContentSuggestsDataLayer(html), s.deps.Config.Orchestrator.DataLayerReprobeDelay)

	result.ScreenshotAfter = s.captureScreenshot(session)
	var postConsentPNG []byte
	if result.ScreenshotAfter != nil {
		postConsentPNG = result.ScreenshotAfter.PNG
	}
	metrics["extractArtifacts"] = time.Since(extractStart)

	records := harness.Merge()
	result.DataLayers = dataLayers

	detectStart := time.Now()
	cmp := detection.DetectCMP(html, records)
	tms := detection.DetectTMS(html, records)
	if s.deps.LLMClient != nil {
		fallback := detection.NewAIFallback(s.deps.LLMClient, s.aiParams(), s.deps.AICache)
		cmp = fallback.Run(ctx, result.URL, html, nil, "", cmp)
	}
	result.CMP = cmp
	result.TMS = tms
	metrics["runDetection"] = time.Since(detectStart)

	// Requests are classified against CMP detection: a pre-consent tracking
	// call is only reportable as a violation once a consent mechanism is
	// known to exist for it to have bypassed.
	result.Requests = BuildRequestLogs(ctx, records, *timeline, s.residencyLookup(), cmp.Found())

	auditStart := time.Now()
	inputs := audit.Inputs{
		HTML:            html,
		BannerHTML:      interaction.BannerHTML,
		CMP:             cmp,
		Requests:        records,
		Mode:            timeline.Mode,
		PostConsentPNG:  postConsentPNG,
		ResidencyLookup: s.residencyLookup(),
		Domains:         UniqueDomains(result.Requests),
	}
	if interaction.AcceptBox != nil {
		inputs.AcceptBox = &audit.BoundingBox{Width: interaction.AcceptBox.Width, Height: interaction.AcceptBox.Height}
	}
	if interaction.RejectBox != nil {
		inputs.RejectBox = &audit.BoundingBox{Width: interaction.RejectBox.Width, Height: interaction.RejectBox.Height}
	}
	if s.deps.LLMClient != nil {
		inputs.VisionChecker = &visionAdapter{client: s.deps.LLMClient}
		inputs.VisionParams = audit.VisionParams{
			APIKey:  s.deps.Config.AI.APIKey,
			Model:   s.deps.Config.AI.Model,
			BaseURL: s.deps.Config.AI.BaseURL,
		}
	}
	findings := audit.RunAll(ctx, inputs)
	result.GDPRAudit, result.SiteViolations, result.DataResidencyViolations = splitFindings(findings)
	metrics["runAudits"] = time.Since(auditStart)

	result.PerformanceMetrics = metrics
	result.FinishedAt = time.Now()
	result.RiskScore = scoring.Score(result)
	result.Grade = scoring.Grade(result.RiskScore)
	result.ViolationsCount = countCodedFindings(result)
	fine := scoring.EstimateFine(result)
	result.FineEstimate = &fine

	cert, err := scoring.BuildCertificate(result, models.CertScanSummary, "consent-core", "")
	if err != nil {
		slog.Error("certificate build failed", "error", err)
	} else {
		result.Certificate = cert
	}

	s.deps.ResultCache.Set(cache.NormalizeURL(result.URL), *result)

	if s.deps.Config.Webhook.URL != "" {
		webhook.DeliverAsync(s.deps.Config.Webhook.URL, s.deps.Config.Webhook.Secret, &webhook.Event{
			Type:      "scan.completed",
			ScanID:    result.ScanID,
			Timestamp: result.FinishedAt.Unix(),
			Result:    result,
		})
	}
}

// captureScreenshot takes a PNG screenshot and returns it alongside its
// SHA-256 hash as ScreenshotEvidence for the certificate's evidence chain.
// Returns nil if the capture itself failed; a missing screenshot degrades
// the certificate's evidence chain rather than the whole scan.
func (s *Scanner) captureScreenshot(session *browser.Session) *models.ScreenshotEvidence {
	png, err := session.Screenshot()
	if err != nil {
		slog.Warn("screenshot capture degraded", "error", err)
		return nil
	}
	sum := sha256.Sum256(png)
	return &models.ScreenshotEvidence{
		PNG:        png,
		Hash:       hex.EncodeToString(sum[:]),
		CapturedAt: time.Now(),
	}
}

func (s *Scanner) residencyLookup() func(ctx context.Context, domain string) models.DataResidencyInfo {
	if s.deps.GeoIP == nil {
		return nil
	}
	return s.deps.GeoIP.Resolve
}

func (s *Scanner) aiParams() llm.Params {
	return llm.Params{APIKey: s.deps.Config.AI.APIKey, Model: s.deps.Config.AI.Model, BaseURL: s.deps.Config.AI.BaseURL}
}

// splitFindings recovers the {gdprAudit, siteViolations, dataResidency}
// shape ScanResult and the scoring/certificate layers expect from RunAll's
// flat finding list.
func splitFindings(findings []models.AuditFinding) (gdpr, site []models.AuditFinding, residency []models.DataResidencyInfo) {
	for _, f := range findings {
		switch f.Kind {
		case models.AuditGranularity, models.AuditTransparency:
			gdpr = append(gdpr, f)
		case models.AuditParityOfEase, models.AuditUISymmetry, models.AuditAccessibility, models.AuditGPCVisual:
			site = append(site, f)
		case models.AuditDataResidency:
			if info, ok := f.Detail.(models.DataResidencyInfo); ok {
				residency = append(residency, info)
			}
		}
	}
	return
}

func countCodedFindings(result *models.ScanResult) int {
	count := 0
	for _, f := range result.GDPRAudit {
		if f.Violated && len(f.Codes) > 0 {
			count++
		}
	}
	for _, f := range result.SiteViolations {
		if f.Violated && len(f.Codes) > 0 {
			count++
		}
	}
	for _, d := range result.DataResidencyViolations {
		if d.Adequacy == models.AdequacyNonAdequate {
			count++
		}
	}
	return count
}
