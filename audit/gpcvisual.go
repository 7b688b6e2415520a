package audit

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/use-agent/consent-core/models"
)

// VisionChecker is the narrow seam the GPC-visual audit needs from the llm
// client, kept as an interface so audit never imports llm directly (and so
// tests can supply a stub).
type VisionChecker interface {
	ExtractVisionJSON(ctx context.Context, systemPrompt, prompt, imageDataURL string, params VisionParams) (json.RawMessage, error)
}

// VisionParams mirrors llm.Params without importing the llm package.
type VisionParams struct {
	APIKey, Model, BaseURL string
}

const gpcSystemPrompt = `You inspect a screenshot of a web page taken after a visitor's browser asserted the Global Privacy Control (Sec-GPC: 1) signal. Respond ONLY with JSON: {"acknowledged": true|false}. acknowledged is true only if the page visibly confirms it recognized an opt-out preference (e.g. "you have opted out", a disabled "Do Not Sell" toggle, or a GPC badge).`

type gpcVisionResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// CheckGPCVisual passes a post-consent screenshot to a vision model to
// check for an explicit acknowledgment of the opt-out signal, only in gpc
// mode. Absence of a configured vision checker yields an unverified,
// non-violating finding rather than a fabricated pass.
func CheckGPCVisual(ctx context.Context, in Inputs) models.AuditFinding {
	if in.VisionChecker == nil || len(in.PostConsentPNG) == 0 {
		return models.AuditFinding{Kind: models.AuditGPCVisual, Violated: false,
			Evidence: []string{"no vision checker configured or no screenshot captured; GPC acknowledgment unverified"}}
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(in.PostConsentPNG)
	raw, err := in.VisionChecker.ExtractVisionJSON(ctx, gpcSystemPrompt, "Does this page acknowledge GPC?", dataURL, in.VisionParams)
	if err != nil {
		return models.AuditFinding{Kind: models.AuditGPCVisual, Violated: false,
			Evidence: []string{"vision check unavailable: " + err.Error()}}
	}

	var parsed gpcVisionResponse
	if jsonErr := json.Unmarshal(raw, &parsed); jsonErr != nil || !parsed.Acknowledged {
		return models.AuditFinding{
			Kind: models.AuditGPCVisual, Violated: true, Severity: models.SeverityMajor,
			Codes:    []string{"CCPA_1798_135"},
			Evidence: []string{"page did not visibly acknowledge the GPC signal"},
		}
	}
	return models.AuditFinding{Kind: models.AuditGPCVisual, Violated: false}
}
