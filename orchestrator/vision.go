package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/use-agent/consent-core/audit"
	"github.com/use-agent/consent-core/llm"
)

// visionAdapter satisfies audit.VisionChecker by forwarding to the shared
// llm.Client, translating audit's package-local VisionParams to llm.Params
// so the audit package never needs to import llm directly.
type visionAdapter struct {
	client *llm.Client
}

func (v *visionAdapter) ExtractVisionJSON(ctx context.Context, systemPrompt, prompt, imageDataURL string, params audit.VisionParams) (json.RawMessage, error) {
	return v.client.ExtractVisionJSON(ctx, systemPrompt, prompt, imageDataURL, llm.Params{
		APIKey:  params.APIKey,
		Model:   params.Model,
		BaseURL: params.BaseURL,
	})
}
