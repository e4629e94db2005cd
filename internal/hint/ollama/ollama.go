package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/semanadefe/semanadefe/internal/hint"
)

type OllamaHinter struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaHinter(host, model string) *OllamaHinter {
	return &OllamaHinter{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *OllamaHinter) Hint(ctx context.Context, image []byte, mimeType string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  h.model,
		"prompt": hint.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return hint.Normalize(respBody.Response), nil
}
