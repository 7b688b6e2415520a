package detection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/use-agent/consent-core/cache"
	"github.com/use-agent/consent-core/llm"
	"github.com/use-agent/consent-core/models"
)

const (
	maxHTMLSnippet    = 50 * 1024
	maxScriptURLs     = 50
	maxInlineScript   = 20 * 1024
	aiSystemPrompt    = `You identify consent-management and tag-management platforms from a web page's HTML. Respond ONLY with JSON: {"detected":["name", ...],"primary":"name|none","confidence":"high|medium|low"}. Use "none" and "low" confidence when you are not sure.`
)

type aiResponse struct {
	Detected   []string `json:"detected"`
	Primary    string   `json:"primary"`
	Confidence string   `json:"confidence"`
}

// AIFallback is invoked only when primary detection yields none/low
// confidence. It is gated by a 7-day TTL cache keyed on the URL and a
// truncated-HTML fingerprint, since calls cost real money.
type AIFallback struct {
	client *llm.Client
	params llm.Params
	cache  *cache.TTLCache[models.DetectionResult]
}

func NewAIFallback(client *llm.Client, params llm.Params, resultCache *cache.TTLCache[models.DetectionResult]) *AIFallback {
	return &AIFallback{client: client, params: params, cache: resultCache}
}

// Run returns primary's result unchanged unless primary is none/low, in
// which case it consults (and populates) the AI cache. Only high/medium
// confidence AI answers are accepted; otherwise primary's low-confidence
// result stands, since absence of evidence must not be fabricated into a
// finding.
func (f *AIFallback) Run(ctx context.Context, url, html string, scriptURLs []string, inlineScripts string, primary models.DetectionResult) models.DetectionResult {
	if primary.Primary != "none" || primary.Confidence != models.ConfidenceLow {
		return primary
	}

	key := fingerprint(url, html)
	if cached, ok := f.cache.Get(key); ok {
		return cached
	}

	snippet := truncate(html, maxHTMLSnippet)
	urls := scriptURLs
	if len(urls) > maxScriptURLs {
		urls = urls[:maxScriptURLs]
	}
	inline := truncate(inlineScripts, maxInlineScript)

	content := buildAIContent(snippet, urls, inline)
	raw, err := f.client.ExtractJSON(ctx, aiSystemPrompt, content, f.params)
	if err != nil {
		return primary
	}

	var parsed aiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return primary
	}
	if parsed.Confidence != "high" && parsed.Confidence != "medium" {
		return primary
	}

	result := models.DetectionResult{
		Detected:   parsed.Detected,
		Primary:    parsed.Primary,
		Confidence: models.Confidence(parsed.Confidence),
		Evidence: []models.DetectionEvidence{
			{Kind: models.EvidenceAI, Pattern: "generative-model classification"},
		},
	}
	f.cache.Set(key, result)
	return result
}

func fingerprint(url, html string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(truncate(html, maxHTMLSnippet)))
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func buildAIContent(htmlSnippet string, scriptURLs []string, inlineScripts string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"html":          htmlSnippet,
		"scriptURLs":    scriptURLs,
		"inlineScripts": inlineScripts,
	})
	return string(b)
}
