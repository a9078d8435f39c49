package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ridepulse/ridepulse/internal/observability"
)

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaProvider calls a local Ollama server. It prefers /api/chat and
// falls back to /api/generate when the chat endpoint is unavailable.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "llama3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() { observability.ObserveInferenceLatency(p.Name(), time.Since(start)) }()

	chatPayload := map[string]any{
		"model":    p.model,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   false,
	}
	status, body, err := p.post(ctx, "/api/chat", chatPayload)
	if err != nil {
		return "", classify(p.Name(), err)
	}
	if status == http.StatusNotFound {
		generatePayload := map[string]any{
			"model":  p.model,
			"prompt": prompt,
			"stream": false,
		}
		status, body, err = p.post(ctx, "/api/generate", generatePayload)
		if err != nil {
			return "", classify(p.Name(), err)
		}
	}
	if status >= 400 {
		return "", statusError(p.Name(), status, string(body))
	}

	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Provider: p.Name(), Kind: KindTransport, Err: fmt.Errorf("decode response: %w", err)}
	}
	content := parsed.Message.Content
	if content == "" {
		content = parsed.Response
	}
	if strings.TrimSpace(content) == "" {
		return "", &Error{Provider: p.Name(), Kind: KindEmpty}
	}
	return content, nil
}

func (p *OllamaProvider) post(ctx context.Context, path string, payload map[string]any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}
