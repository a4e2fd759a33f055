package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"hargalist/internal/config"
)

// ErrQuota is returned when the provider keeps rate-limiting after all
// retries were spent.
var ErrQuota = errors.New("llm provider quota exhausted")

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMTimeout()},
		limiter:    NewRateLimiter(cfg.LLMRateLimitRPS),
	}
}

// TextMessage builds a single-part user message.
func TextMessage(text string) Message {
	return Message{Role: "user", Content: []ContentPart{{Type: "text", Text: text}}}
}

// VisionMessage pairs a prompt with an inline image.
func VisionMessage(prompt string, image []byte, mime string) Message {
	url := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
	return Message{Role: "user", Content: []ContentPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &ImageURL{URL: url}},
	}}
}

// Complete sends a chat completion request, retrying 429/5xx responses with
// exponential backoff a bounded number of times.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, Usage, error) {
	if strings.TrimSpace(c.cfg.LLMAPIKey) == "" {
		return "", Usage{}, errors.New("missing LLM_API_KEY")
	}

	body, err := json.Marshal(request{Model: model, Messages: messages, Temperature: 0})
	if err != nil {
		return "", Usage{}, err
	}

	endpoint := strings.TrimRight(c.cfg.LLMBaseURL, "/") + "/chat/completions"
	maxAttempts := c.cfg.LLMMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	rateLimited := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return "", Usage{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", Usage{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", Usage{}, ctx.Err()
			}
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				if resp.StatusCode == http.StatusTooManyRequests {
					rateLimited = true
				}
				backoff := time.Duration(500*(1<<(attempt-1))+rand.Intn(250)) * time.Millisecond
				select {
				case <-ctx.Done():
					return "", Usage{}, ctx.Err()
				case <-time.After(backoff):
				}
				lastErr = fmt.Errorf("llm status %d", resp.StatusCode)
				continue
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				return "", Usage{}, fmt.Errorf("%w: status=%d body=%s", ErrQuota, resp.StatusCode, truncate(respBody, 200))
			}
			return "", Usage{}, fmt.Errorf("llm api error: status=%d body=%s", resp.StatusCode, truncate(respBody, 200))
		}

		var parsed response
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", Usage{}, fmt.Errorf("decode llm response: %w", err)
		}
		if parsed.Error != nil {
			return "", Usage{}, fmt.Errorf("llm api error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", parsed.Usage, errors.New("llm response has no choices")
		}
		return parsed.Choices[0].Message.Content, parsed.Usage, nil
	}

	if rateLimited {
		return "", Usage{}, fmt.Errorf("%w: %v", ErrQuota, lastErr)
	}
	if lastErr == nil {
		lastErr = errors.New("llm request failed")
	}
	return "", Usage{}, lastErr
}

// CostUSD estimates the spend for an accumulated token count.
func (c *Client) CostUSD(tokens int64) float64 {
	return float64(tokens) / 1000 * c.cfg.LLMCostPerKTok
}

// StripJSON removes code fences and surrounding prose so the payload can be
// unmarshalled; models wrap JSON in markdown despite instructions.
func StripJSON(content string) string {
	s := strings.TrimSpace(content)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	s = strings.TrimSpace(s)
	if start := strings.IndexAny(s, "[{"); start > 0 {
		s = s[start:]
	}
	return s
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
