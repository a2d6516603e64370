package arbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiTimeout = 30 * time.Second
	geminiMaxRetries     = 3
)

const geminiSystemPrompt = "You route turns of a multi-step workflow. " +
	"Given the current state and the candidate handlers, pick the single best " +
	"handler to run next. Answer with the handler id exactly as listed."

// Gemini arbitrates by calling the Gemini generateContent API with a
// response schema, so the verdict comes back as structured JSON rather than
// free text.
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// GeminiOption customizes the client.
type GeminiOption func(*Gemini)

// WithModel overrides the default model.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) {
		if url != "" {
			g.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) {
		if client != nil {
			g.client = client
		}
	}
}

// NewGemini builds a Gemini arbiter. The API key must be non-empty; key
// discovery (env vars, config) is the caller's concern.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("arbiter: gemini api key is empty")
	}
	g := &Gemini{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		model:   defaultGeminiModel,
		client:  &http.Client{Timeout: defaultGeminiTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// verdictSchema constrains the model to the candidate ids plus "done".
func verdictSchema(candidates []string) map[string]any {
	handler := map[string]any{"type": "string"}
	if len(candidates) > 0 {
		ids := make([]string, 0, len(candidates)+1)
		ids = append(ids, candidates...)
		ids = append(ids, "done")
		handler["enum"] = ids
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"handler":   handler,
			"rationale": map[string]any{"type": "string"},
		},
		"required": []string{"handler"},
	}
}

// Decide implements Arbiter.
func (g *Gemini) Decide(ctx context.Context, req Request) (Verdict, error) {
	var prompt strings.Builder
	prompt.WriteString(req.Context)
	if req.StateSummary != "" {
		prompt.WriteString("\nCurrent state:\n")
		prompt.WriteString(req.StateSummary)
		prompt.WriteString("\n")
	}
	prompt.WriteString("\nRespond with JSON: {\"handler\": ..., \"rationale\": ...}")

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt.String()}}},
		},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: geminiSystemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0,
			ResponseMimeType: "application/json",
			ResponseSchema:   verdictSchema(req.Candidates),
		},
	}

	text, err := g.generate(ctx, body)
	if err != nil {
		return Verdict{}, err
	}

	var out struct {
		Handler   string `json:"handler"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Verdict{}, fmt.Errorf("arbiter: gemini returned malformed verdict: %w", err)
	}
	if strings.TrimSpace(out.Handler) == "" {
		return Verdict{}, fmt.Errorf("arbiter: gemini verdict has no handler")
	}
	return Verdict{Handler: strings.TrimSpace(out.Handler), Rationale: out.Rationale}, nil
}

// generate posts one generateContent call, retrying rate limits and
// transport errors with exponential backoff.
func (g *Gemini) generate(ctx context.Context, reqBody geminiRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("arbiter: marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	var lastErr error
	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("arbiter: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("arbiter: gemini request failed: %w", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("arbiter: read response: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("arbiter: gemini rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("arbiter: gemini returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var parsed geminiResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("arbiter: parse response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("arbiter: gemini error: %s", parsed.Error.Message)
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("arbiter: gemini returned no candidates")
		}

		var text strings.Builder
		for _, part := range parsed.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		return text.String(), nil
	}
	return "", lastErr
}
