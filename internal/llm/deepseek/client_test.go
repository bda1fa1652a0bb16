package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func testClient(baseURL string, maxAttempts int, backoff time.Duration) *Client {
	return NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		MaxAttempts:  maxAttempts,
		RetryBackoff: backoff,
		Timeout:      5 * time.Second,
	}, testLogger())
}

func TestCompleteHappyPath(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody(`{"key_financial_metrics": []}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, 10*time.Millisecond)
	content, err := c.Complete(context.Background(), llm.Prompt{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, `{"key_financial_metrics": []}`, content)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCompleteSendsAuthAndChatBody(t *testing.T) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	var got struct {
		auth     string
		ctype    string
		Model    string    `json:"model"`
		Stream   bool      `json:"stream"`
		Messages []message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.ctype = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		io.WriteString(w, completionBody("ok"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1, time.Millisecond)
	_, err := c.Complete(context.Background(), llm.Prompt{System: "analyst rules", User: "filing text"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", got.auth)
	assert.Equal(t, "application/json", got.ctype)
	assert.Equal(t, DefaultModel, got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, message{Role: "system", Content: "analyst rules"}, got.Messages[0])
	assert.Equal(t, message{Role: "user", Content: "filing text"}, got.Messages[1])
}

func TestCompleteRetriesServerErrorsUntilExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	backoff := 10 * time.Millisecond
	c := testClient(srv.URL, 3, backoff)

	start := time.Now()
	_, err := c.Complete(context.Background(), llm.Prompt{User: "text"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, int32(3), hits.Load(), "every configured attempt must be used")
	// Two waits: backoff, then doubled backoff.
	assert.GreaterOrEqual(t, elapsed, 3*backoff)
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5, time.Millisecond)
	_, err := c.Complete(context.Background(), llm.Prompt{User: "text"})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelRejected)
	assert.NotErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, int32(1), hits.Load(), "a rejected request must not be repeated")
}

func TestCompleteRecoversAfterTransientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, completionBody("recovered"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, time.Millisecond)
	content, err := c.Complete(context.Background(), llm.Prompt{User: "text"})

	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCompleteRetriesEmptyChoices(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			io.WriteString(w, `{"choices": []}`)
			return
		}
		io.WriteString(w, completionBody("second try"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, time.Millisecond)
	content, err := c.Complete(context.Background(), llm.Prompt{User: "text"})

	require.NoError(t, err)
	assert.Equal(t, "second try", content)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCompleteStopsWhenCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Long backoff so cancellation lands during the first wait.
	c := testClient(srv.URL, 3, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Complete(ctx, llm.Prompt{User: "text"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, int32(1), hits.Load(), "no attempt may start after cancellation")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCompletePerAttemptTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
			io.WriteString(w, completionBody("too late"))
		}
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		Timeout:      30 * time.Millisecond,
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
	}, testLogger())

	_, err := c.Complete(context.Background(), llm.Prompt{User: "text"})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "a timed-out attempt is retried")
}

func TestCompleteTransportErrorBecomesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := testClient(srv.URL, 2, time.Millisecond)
	_, err := c.Complete(context.Background(), llm.Prompt{User: "text"})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)

	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultModel, c.cfg.Model)
	assert.Equal(t, 1024, c.cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, c.cfg.Timeout)
	assert.Equal(t, 3, c.cfg.MaxAttempts)
	assert.Equal(t, time.Second, c.cfg.RetryBackoff)
	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.log)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   attemptOutcome
	}{
		{"transport error", 0, errors.New("connection refused"), outcomeRetry},
		{"ok", 200, nil, outcomeSuccess},
		{"created", 201, nil, outcomeSuccess},
		{"bad request", 400, nil, outcomeFatal},
		{"unauthorized", 401, nil, outcomeFatal},
		{"quota exceeded", 429, nil, outcomeFatal},
		{"server error", 500, nil, outcomeRetry},
		{"bad gateway", 502, nil, outcomeRetry},
		{"zero status no error", 0, nil, outcomeRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.status, tt.err))
		})
	}
}

func TestBackoffForDoubles(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, backoffFor(base, 1))
	assert.Equal(t, 200*time.Millisecond, backoffFor(base, 2))
	assert.Equal(t, 400*time.Millisecond, backoffFor(base, 3))
	assert.Equal(t, maxBackoff, backoffFor(time.Hour, 2))
}
