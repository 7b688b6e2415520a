// Package llm is a lightweight OpenAI-compatible client used for the
// detection engine's AI-HTML fallback and the GPC visual-confirmation
// audit's vision check. It talks net/http directly — no third-party SDK — matching the
// BYOK (bring-your-own-key) pattern the orchestrator's config resolves
// from VITE_API_KEY / API_KEY / GEMINI_API_KEY.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/consent-core/models"
)

type Client struct {
	httpClient *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// Params holds per-request LLM configuration.
type Params struct {
	APIKey  string
	Model   string
	BaseURL string
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage's Content is a string for text-only prompts (the detection
// fallback) or a slice of contentPart for vision prompts (GPC audit).
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractJSON sends content plus a strict JSON schema description and
// returns the model's raw JSON answer, used by the detection AI fallback.
func (c *Client) ExtractJSON(ctx context.Context, systemPrompt, content string, params Params) (json.RawMessage, error) {
	req := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	return c.call(ctx, req, params)
}

// ExtractVisionJSON sends an image (as a data URL) plus a prompt, used by
// the GPC visual-confirmation audit.
func (c *Client) ExtractVisionJSON(ctx context.Context, systemPrompt, prompt string, imageDataURL string, params Params) (json.RawMessage, error) {
	req := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: imageDataURL}},
			}},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	return c.call(ctx, req, params)
}

func (c *Client) call(ctx context.Context, reqBody chatRequest, params Params) (json.RawMessage, error) {
	if params.APIKey == "" {
		return nil, models.NewScanError(models.ErrAIFallbackUnavailable, "no generative-model API key configured", nil)
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal LLM request: %w", err)
	}

	endpoint := strings.TrimRight(params.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create LLM request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.NewScanError(models.ErrAIFallbackUnavailable, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewScanError(models.ErrAIFallbackUnavailable, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewScanError(models.ErrAIFallbackUnavailable, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewScanError(models.ErrAIFallbackUnavailable, "LLM returned no choices", nil)
	}

	raw := chatResp.Choices[0].Message.Content
	if !json.Valid([]byte(raw)) {
		return nil, models.NewScanError(models.ErrAIFallbackUnavailable, "LLM returned invalid JSON", nil)
	}
	return json.RawMessage(raw), nil
}

func classifyLLMError(statusCode int, body []byte) *models.ScanError {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	return models.NewScanError(models.ErrAIFallbackUnavailable, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
}
