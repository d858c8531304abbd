// Package ai provides one chat interface over a hosted OpenAI-compatible API
// and a local Ollama server.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fentz26/commandcenter/internal/observability"
)

const maxErrorBodyChars = 200

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Options tune a single call.
type Options struct {
	Model   string
	Timeout time.Duration
}

// ChatResult is the complete answer of a non-streaming call.
type ChatResult struct {
	Content  string   `json:"content"`
	Provider Provider `json:"provider"`
}

// Adapter routes chat calls to the configured backend.
type Adapter struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New creates an adapter. Timeouts are enforced per call through contexts, so
// the underlying client carries none.
func New(cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{},
		log:    logger,
	}
}

// Configured returns true if at least one backend is configured.
func (a *Adapter) Configured() bool {
	return a.cfg.Configured()
}

// Provider returns the backend calls resolve to.
func (a *Adapter) Provider() (Provider, bool) {
	return a.cfg.Provider()
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Chat sends messages and waits for the complete answer.
func (a *Adapter) Chat(ctx context.Context, messages []Message, opts Options) (ChatResult, error) {
	if len(messages) == 0 {
		return ChatResult{}, ErrNoMessages
	}
	b, err := a.cfg.resolve(opts.Model)
	if err != nil {
		return ChatResult{}, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = a.cfg.timeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newChatRequest(ctx, b, messages, false)
	if err != nil {
		return ChatResult{}, err
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return ChatResult{}, transportError(ctx, b.provider, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChatResult{}, newBackendError(b.provider, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResult{}, transportError(ctx, b.provider, timeout, err)
	}
	content, err := decodeChatContent(b.provider, body)
	if err != nil {
		return ChatResult{}, err
	}

	a.log.Debug("ai chat completed", "provider", b.provider, "model", b.model, "duration", time.Since(start))
	return ChatResult{Content: content, Provider: b.provider}, nil
}

// Stream is a live NDJSON stream of StreamChunk records. Closing it aborts the
// backend request.
type Stream struct {
	Provider Provider
	body     io.ReadCloser
	cancel   context.CancelFunc
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.body.Read(p)
}

// Close cancels the backend request and releases the connection.
func (s *Stream) Close() error {
	s.cancel()
	return s.body.Close()
}

// ChatStream sends messages and returns the answer as it is generated. The
// output is always NDJSON regardless of the backend's wire format.
func (a *Adapter) ChatStream(ctx context.Context, messages []Message, opts Options) (*Stream, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	b, err := a.cfg.resolve(opts.Model)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = a.cfg.streamTimeout()
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
	})

	req, err := newChatRequest(ctx, b, messages, true)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}

	resp, err := a.client.Do(req)
	timer.Stop()
	if err != nil {
		cancel()
		if timedOut.Load() {
			return nil, &TimeoutError{Provider: b.provider, After: timeout}
		}
		if perr := parent.Err(); perr != nil {
			return nil, perr
		}
		return nil, &BackendError{Provider: b.provider, Err: err}
	}
	if timedOut.Load() {
		resp.Body.Close()
		cancel()
		return nil, &TimeoutError{Provider: b.provider, After: timeout}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		berr := newBackendError(b.provider, resp)
		resp.Body.Close()
		cancel()
		return nil, berr
	}

	translate := NormalizeNDJSON
	if b.provider == ProviderHosted {
		translate = TranslateSSE
	}

	pr, pw := io.Pipe()
	go func() {
		defer cancel()
		defer resp.Body.Close()
		err := translate(pw, resp.Body)
		if err != nil && !errors.Is(err, io.ErrClosedPipe) {
			a.log.Debug("ai stream ended with error", "provider", b.provider, "error", err)
		}
		pw.CloseWithError(err)
	}()

	a.log.Debug("ai stream started", "provider", b.provider, "model", b.model)
	return &Stream{Provider: b.provider, body: pr, cancel: cancel}, nil
}

func newChatRequest(ctx context.Context, b backend, messages []Message, stream bool) (*http.Request, error) {
	payload, err := json.Marshal(chatRequest{Model: b.model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream, application/x-ndjson")
	}
	return req, nil
}

type hostedResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type localResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func decodeChatContent(p Provider, body []byte) (string, error) {
	switch p {
	case ProviderHosted:
		var r hostedResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("decode %s response: %w", p, err)
		}
		if len(r.Choices) == 0 {
			return "", nil
		}
		return strings.TrimSpace(r.Choices[0].Message.Content), nil
	default:
		var r localResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("decode %s response: %w", p, err)
		}
		return strings.TrimSpace(r.Message.Content), nil
	}
}

// transportError classifies a failed round trip on a context with a deadline.
func transportError(ctx context.Context, p Provider, timeout time.Duration, err error) error {
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return &TimeoutError{Provider: p, After: timeout}
	case ctxErr != nil:
		return ctxErr
	}
	return &BackendError{Provider: p, Err: err}
}

func newBackendError(p Provider, resp *http.Response) *BackendError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &BackendError{
		Provider:   p,
		StatusCode: resp.StatusCode,
		Body:       truncate(string(data), maxErrorBodyChars),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
