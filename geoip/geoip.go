// Package geoip resolves a request domain to a country and GDPR adequacy
// status, consulting a static vendor map before falling back to a
// third-party lookup. It is one of the orchestrator's outbound side-channel
// calls besides the scan's own navigation; a plain net/http client is
// sufficient here since ip-api.com is a JSON API, not a page to be
// evaded or fingerprinted against.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/models"
	"github.com/use-agent/consent-core/signatures"
)

type apiResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Query       string `json:"query"`
}

// Resolver looks up DataResidencyInfo for a domain, process-wide cached.
type Resolver struct {
	baseURL string
	client  *http.Client
	cache   *cache.TTLCache[models.DataResidencyInfo]
}

// NewResolver builds a Resolver with its own process-wide TTL cache (evicts
// the oldest entry at capacity), TTL'd long (30 days) since country-for-IP
// rarely churns.
func NewResolver(baseURL string, timeout time.Duration) *Resolver {
	return &Resolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New[models.DataResidencyInfo](30*24*time.Hour, 10000, time.Hour),
	}
}

// NewResolverWithCache lets callers share an externally-constructed cache.
func NewResolverWithCache(baseURL string, timeout time.Duration, c *cache.TTLCache[models.DataResidencyInfo]) *Resolver {
	return &Resolver{baseURL: baseURL, client: &http.Client{Timeout: timeout}, cache: c}
}

// Resolve implements the lookup order: known-vendor map -> geo API -> UNKNOWN.
func (r *Resolver) Resolve(ctx context.Context, domain string) models.DataResidencyInfo {
	if info, ok := r.cache.Get(domain); ok {
		return info
	}

	if vendorCountry, ok := signatures.VendorCountry[domain]; ok {
		info := models.DataResidencyInfo{
			RequestDomain: domain,
			Country:       vendorCountry,
			Adequacy:      signatures.AdequacyFor(vendorCountry),
		}
		r.cache.Set(domain, info)
		return info
	}

	info, err := r.lookup(ctx, domain)
	if err != nil {
		info = models.DataResidencyInfo{RequestDomain: domain, Adequacy: models.AdequacyUnknown}
	}
	r.cache.Set(domain, info)
	return info
}

func (r *Resolver) lookup(ctx context.Context, domain string) (models.DataResidencyInfo, error) {
	endpoint := r.baseURL + url.PathEscape(domain) + "?fields=status,message,country,countryCode,query"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.DataResidencyInfo{}, models.NewScanError(models.ErrGeoLookupFailed, "building geo-ip request", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return models.DataResidencyInfo{}, models.NewScanError(models.ErrGeoLookupFailed, "geo-ip request failed", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.DataResidencyInfo{}, models.NewScanError(models.ErrGeoLookupFailed, "decoding geo-ip response", err)
	}
	if body.Status != "success" {
		return models.DataResidencyInfo{}, models.NewScanError(models.ErrGeoLookupFailed, fmt.Sprintf("geo-ip lookup failed: %s", body.Message), nil)
	}

	return models.DataResidencyInfo{
		RequestDomain: domain,
		ResolvedIP:    body.Query,
		Country:       body.Country,
		CountryCode:   body.CountryCode,
		Adequacy:      signatures.AdequacyFor(body.CountryCode),
	}, nil
}
