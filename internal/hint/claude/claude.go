package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/semanadefe/semanadefe/internal/hint"
)

// A hint is two words; 32 tokens leaves room for stray punctuation.
const maxTokens = 32

type ClaudeHinter struct {
	client *anthropic.Client
	model  string
}

type Option func(*[]anthropic.ClientOption)

// WithBaseURL points the client at a different Messages API root.
func WithBaseURL(url string) Option {
	return func(opts *[]anthropic.ClientOption) {
		*opts = append(*opts, anthropic.WithBaseURL(url))
	}
}

func NewClaudeHinter(apiKey, model string, opts ...Option) *ClaudeHinter {
	clientOpts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	return &ClaudeHinter{
		client: anthropic.NewClient(apiKey, clientOpts...),
		model:  model,
	}
}

func (h *ClaudeHinter) Hint(ctx context.Context, image []byte, mimeType string) (string, error) {
	resp, err := h.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(h.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(image),
				)),
				anthropic.NewTextMessageContent(hint.Prompt),
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("claude returned no content")
	}
	return hint.Normalize(resp.Content[0].GetText()), nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API
// accepts. Unknown types are coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
