package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/comigor/relaybot/internal/config"
	"github.com/comigor/relaybot/internal/history"
	"github.com/comigor/relaybot/internal/logger"
)

// ModelVariant selects between the standard and the higher-capability model
// for a single turn.
type ModelVariant string

const (
	VariantStandard ModelVariant = "standard"
	VariantPro      ModelVariant = "pro"
)

const missingKeyMessage = "Error: GEMINI_API_KEY is not configured."

// Client calls the Gemini generateContent endpoint. One outbound call per
// turn, no retries; every failure is classified into a *Failure whose message
// is the reply shown to the user.
type Client struct {
	cfg  config.GeminiConfig
	http *http.Client
}

// NewClient creates a new Gemini client from explicit configuration.
func NewClient(cfg config.GeminiConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Request body types. A message's text always travels as a one-element parts
// list.
type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
	Tools            []tool           `json:"tools"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type tool struct {
	GoogleSearch struct{} `json:"googleSearch"`
}

var defaultGenerationConfig = generationConfig{
	Temperature:     0.7,
	TopP:            0.95,
	TopK:            40,
	MaxOutputTokens: 2048,
}

var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// Generate submits the history to the selected model and returns the reply
// text, or a *Failure describing why there is none.
func (c *Client) Generate(ctx context.Context, h history.History, variant ModelVariant) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &Failure{Kind: FailureConfig, Message: missingKeyMessage}
	}
	if len(h) == 0 {
		return "", failf(FailureStructure, "Cannot call Gemini with an empty conversation.")
	}

	normalized, needsPlaceholder := history.PrepareForSubmission(h)
	if len(normalized) == 0 && !needsPlaceholder {
		return "", failf(FailureStructure, "Cannot call Gemini with an empty conversation.")
	}
	if needsPlaceholder {
		normalized = append(history.History{{Role: history.RoleUser, Text: history.PlaceholderText}}, normalized...)
	}

	model := c.modelFor(variant)
	body, err := json.Marshal(buildRequest(normalized))
	if err != nil {
		return "", failf(FailureTransport, "Error communicating with Gemini: %v", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", failf(FailureTransport, "Error communicating with Gemini: %v",
			logger.Redact(err.Error(), c.cfg.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	logger.L.Debug("calling gemini",
		"model", model, "messages", len(normalized), "url", logger.Redact(url, c.cfg.APIKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", failf(FailureTransport, "Error communicating with Gemini: %v",
			logger.Redact(err.Error(), c.cfg.APIKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failf(FailureTransport, "Error communicating with Gemini: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = resp.Status
		}
		return "", failf(FailureStatus, "Gemini API error (HTTP %d): %s", resp.StatusCode, detail)
	}

	return classifyResponse(raw)
}

func (c *Client) modelFor(variant ModelVariant) string {
	if variant == VariantPro {
		return c.cfg.ProModel
	}
	return c.cfg.Model
}

func buildRequest(h history.History) generateContentRequest {
	contents := make([]content, 0, len(h))
	for _, m := range h {
		contents = append(contents, content{
			Role:  string(m.Role),
			Parts: []part{{Text: m.Text}},
		})
	}
	return generateContentRequest{
		Contents:         contents,
		GenerationConfig: defaultGenerationConfig,
		SafetySettings:   defaultSafetySettings,
		Tools:            []tool{{}},
	}
}

// classifyResponse walks a 2xx response in strict order, short-circuiting at
// the first match: prompt-level block, missing candidates, abnormal finish
// reason, then the first non-thought part's text.
func classifyResponse(raw []byte) (string, error) {
	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason"); reason.Exists() {
		return "", failf(FailureSafety,
			"Request was blocked by safety filters (Reason: %s).", reason.String())
	}

	candidates := gjson.GetBytes(raw, "candidates")
	if !candidates.IsArray() || len(candidates.Array()) == 0 {
		// blockReason is rechecked here because some responses carry it
		// without any candidates.
		if reason := gjson.GetBytes(raw, "promptFeedback.blockReason"); reason.Exists() {
			return "", failf(FailureSafety,
				"Request was blocked by safety filters (Reason: %s).", reason.String())
		}
		return "", failf(FailureStructure, "Gemini returned an unexpected response structure.")
	}

	finish := gjson.GetBytes(raw, "candidates.0.finishReason").String()
	if finish != "" && finish != "STOP" && finish != "MAX_TOKENS" {
		phrase := finish
		switch finish {
		case "SAFETY":
			phrase = "due to safety filters"
		case "RECITATION":
			phrase = "due to potential recitation issues"
		}
		return "", failf(FailureSafety, "Response stopped %s (finishReason: %s).", phrase, finish)
	}

	for _, p := range gjson.GetBytes(raw, "candidates.0.content.parts").Array() {
		if p.Get("thought").Bool() {
			continue
		}
		if text := strings.TrimSpace(p.Get("text").String()); text != "" {
			return text, nil
		}
		// First non-thought part carries no text (e.g. a bare function
		// call); nothing usable follows.
		break
	}

	msg := "No suitable text part found in Gemini response"
	if finish != "" {
		msg += fmt.Sprintf(" (finishReason: %s)", finish)
	}
	return "", failf(FailureStructure, "%s.", msg)
}
