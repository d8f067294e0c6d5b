// okr-progression-system/services/llm_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"okr-progression-system/utils"
)

// Evaluator is the LLM collaborator: a prompt in, free-form text out.
type Evaluator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMClient calls the platform's LLM gateway over HTTP.
type LLMClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type completionResponse struct {
	Text string `json:"text"`
}

func NewLLMClient(baseURL, token string) *LLMClient {
	return &LLMClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.NewHTTPClient(60 * time.Second),
	}
}

// Complete posts prompt to /v1/complete and returns the generated text.
func (c *LLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/v1/complete", c.BaseURL)

	jsonData, err := json.Marshal(map[string]any{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("[LLM] completion failed", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("llm completion failed: %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
