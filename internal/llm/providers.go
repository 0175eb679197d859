package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 45 * time.Second

// openAIProvider speaks the OpenAI chat-completions wire format, which Groq
// and OpenRouter both serve.
type openAIProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	dailyLimit int
	httpc      *http.Client
}

// NewGroq builds a provider against Groq's completion endpoint.
func NewGroq(apiKey string) Provider {
	return &openAIProvider{
		name:       "groq",
		baseURL:    "https://api.groq.com/openai/v1/chat/completions",
		apiKey:     apiKey,
		model:      "llama-3.3-70b-versatile",
		dailyLimit: 14000,
		httpc:      &http.Client{Timeout: defaultTimeout},
	}
}

// NewOpenRouter builds a provider against OpenRouter's completion endpoint.
func NewOpenRouter(apiKey string) Provider {
	return &openAIProvider{
		name:       "openrouter",
		baseURL:    "https://openrouter.ai/api/v1/chat/completions",
		apiKey:     apiKey,
		model:      "meta-llama/llama-3.3-70b-instruct:free",
		dailyLimit: 1000,
		httpc:      &http.Client{Timeout: defaultTimeout},
	}
}

func (p *openAIProvider) Name() string    { return p.name }
func (p *openAIProvider) DailyLimit() int { return p.dailyLimit }

func (p *openAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	body := map[string]any{
		"model":    p.model,
		"messages": messages,
	}
	if opts.Temperature > 0 {
		body["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request: %w", p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode, truncate(raw, 200))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", p.name)
	}
	return parsed.Choices[0].Message.Content, nil
}

// geminiProvider speaks Google's generateContent wire format.
type geminiProvider struct {
	apiKey     string
	model      string
	dailyLimit int
	httpc      *http.Client
}

// NewGemini builds a provider against Google's generateContent endpoint.
func NewGemini(apiKey string) Provider {
	return &geminiProvider{
		apiKey:     apiKey,
		model:      "gemini-2.0-flash",
		dailyLimit: 1500,
		httpc:      &http.Client{Timeout: defaultTimeout},
	}
}

func (p *geminiProvider) Name() string    { return "google" }
func (p *geminiProvider) DailyLimit() int { return p.dailyLimit }

func (p *geminiProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	body := struct {
		SystemInstruction *content  `json:"system_instruction,omitempty"`
		Contents          []content `json:"contents"`
		GenerationConfig  struct {
			Temperature     float64 `json:"temperature,omitempty"`
			MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		} `json:"generationConfig"`
	}{}
	body.GenerationConfig.Temperature = opts.Temperature
	body.GenerationConfig.MaxOutputTokens = opts.MaxTokens

	for _, m := range messages {
		if m.Role == RoleSystem {
			body.SystemInstruction = &content{Parts: []part{{Text: m.Content}}}
			continue
		}
		body.Contents = append(body.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("google: marshal request: %w", err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("google: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("google: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("google: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("google: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("google: empty candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
