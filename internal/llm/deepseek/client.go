package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/llm"
)

// Complete sends the prompt as a chat-completions request and returns the raw
// completion text. Failures are retried with exponential backoff up to
// MaxAttempts; 4xx answers stop immediately. Once the context is cancelled no
// further attempt is started.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	start := time.Now()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"stream":      false,
		"messages": []map[string]any{
			{"role": "system", "content": prompt.System},
			{"role": "user", "content": prompt.User},
		},
	}

	c.log.Info("llm.complete.start",
		"req_id", reqID,
		"model", c.cfg.Model,
		"prompt_chars", prompt.Chars(),
		"max_attempts", c.cfg.MaxAttempts,
	)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffFor(c.cfg.RetryBackoff, attempt-1)
			c.log.Warn("llm.complete.retry",
				"req_id", reqID,
				"attempt", attempt,
				"backoff_ms", delay.Milliseconds(),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("completion cancelled before attempt %d: %w", attempt, ctx.Err())
			case <-time.After(delay):
			}
		}

		content, outcome, err := c.attempt(ctx, endpoint, body)
		switch outcome {
		case outcomeSuccess:
			c.log.Info("llm.complete.ok",
				"req_id", reqID,
				"attempt", attempt,
				"content_chars", len(content),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return content, nil
		case outcomeFatal:
			c.log.Error("llm.complete.rejected",
				"req_id", reqID,
				"attempt", attempt,
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return "", common.ModelRejected("backend rejected the completion request", err)
		default:
			lastErr = err
			if ctx.Err() != nil {
				return "", fmt.Errorf("completion cancelled during attempt %d: %w", attempt, ctx.Err())
			}
		}
	}

	c.log.Error("llm.complete.exhausted",
		"req_id", reqID,
		"attempts", c.cfg.MaxAttempts,
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return "", common.ModelUnavailable(
		fmt.Sprintf("no completion after %d attempts", c.cfg.MaxAttempts), lastErr)
}

// attempt performs one request under its own deadline and classifies the
// result. A 2xx answer whose body carries no usable content counts as a
// retryable failure: the transport worked but the backend delivered nothing.
func (c *Client) attempt(ctx context.Context, endpoint string, body map[string]any) (string, attemptOutcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(attemptCtx, c.httpClient, endpoint, body, headers, c.log)

	outcome := classify(status, err)
	if outcome != outcomeSuccess {
		if err == nil {
			err = fmt.Errorf("backend status %d: %s", status, excerpt(raw))
		}
		return "", outcome, err
	}

	content, err := decodeCompletion(raw)
	if err != nil {
		return "", outcomeRetry, err
	}
	return content, outcomeSuccess, nil
}

// decodeCompletion pulls the assistant text out of a chat-completions
// response body.
func decodeCompletion(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("completion content is empty")
	}
	return content, nil
}

// excerpt keeps error messages readable when the backend returns a page of
// HTML or a long error body.
func excerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
