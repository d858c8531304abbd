package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

var userTurn = []Message{{Role: "user", Content: "hello"}}

func decodeRequest(t *testing.T, r *http.Request) chatRequest {
	t.Helper()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return req
}

func TestConfigProviderPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		want   Provider
		wantOK bool
	}{
		{"both configured", Config{OpenAIAPIKey: "sk-test", OllamaBaseURL: "http://ollama"}, ProviderHosted, true},
		{"hosted only", Config{OpenAIAPIKey: "sk-test"}, ProviderHosted, true},
		{"local only", Config{OllamaBaseURL: "http://ollama"}, ProviderLocal, true},
		{"blank key falls through", Config{OpenAIAPIKey: "  ", OllamaBaseURL: "http://ollama"}, ProviderLocal, true},
		{"neither", Config{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.cfg.Provider()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Provider() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveDefaultModels(t *testing.T) {
	b, err := Config{OpenAIAPIKey: "sk"}.resolve("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if b.model != DefaultHostedModel || b.endpoint != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("unexpected hosted backend %+v", b)
	}

	b, err = Config{OllamaBaseURL: "http://localhost:11434/"}.resolve("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if b.model != DefaultLocalModel || b.endpoint != "http://localhost:11434/api/chat" {
		t.Errorf("unexpected local backend %+v", b)
	}

	b, _ = Config{OllamaBaseURL: "http://x"}.resolve("llama3")
	if b.model != "llama3" {
		t.Errorf("model override ignored: %q", b.model)
	}
}

func TestChat_BothConfiguredUsesHosted(t *testing.T) {
	hosted := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization %q", got)
		}
		req := decodeRequest(t, r)
		if req.Model != DefaultHostedModel || req.Stream {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  hi there \n"}}]}`)
	}))
	defer hosted.Close()

	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("local backend must not be called when hosted is configured")
	}))
	defer local.Close()

	a := New(Config{OpenAIAPIKey: "sk-test", OpenAIBaseURL: hosted.URL, OllamaBaseURL: local.URL}, nil)
	res, err := a.Chat(context.Background(), userTurn, Options{})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Provider != ProviderHosted || res.Content != "hi there" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestChat_LocalOnly(t *testing.T) {
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("local backend must not receive an auth header")
		}
		req := decodeRequest(t, r)
		if req.Model != "llama3" {
			t.Errorf("expected model override, got %q", req.Model)
		}
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"local answer"},"done":true}`)
	}))
	defer local.Close()

	a := New(Config{OllamaBaseURL: local.URL + "/"}, nil)
	res, err := a.Chat(context.Background(), userTurn, Options{Model: "llama3"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Provider != ProviderLocal || res.Content != "local answer" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestChat_NotConfiguredMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	a := New(Config{}, nil)
	a.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("unexpected network call")
	})}

	if _, err := a.Chat(context.Background(), userTurn, Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Chat error = %v, want ErrNotConfigured", err)
	}
	if _, err := a.ChatStream(context.Background(), userTurn, Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ChatStream error = %v, want ErrNotConfigured", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no network calls, got %d", calls.Load())
	}
	if a.Configured() {
		t.Error("expected Configured() to be false")
	}
}

func TestChat_NoMessages(t *testing.T) {
	a := New(Config{OllamaBaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := a.Chat(context.Background(), nil, Options{}); !errors.Is(err, ErrNoMessages) {
		t.Errorf("expected ErrNoMessages, got %v", err)
	}
}

func TestChat_BackendErrorCarriesStatusAndTruncatedBody(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, long)
	}))
	defer srv.Close()

	a := New(Config{OllamaBaseURL: srv.URL}, nil)
	_, err := a.Chat(context.Background(), userTurn, Options{})

	be, ok := AsBackendError(err)
	if !ok {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if be.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", be.StatusCode)
	}
	if len(be.Body) != maxErrorBodyChars {
		t.Errorf("body length = %d, want %d", len(be.Body), maxErrorBodyChars)
	}
	if IsTimeout(err) {
		t.Error("backend error must not be classified as timeout")
	}
}

func TestChat_TimeoutIsDistinctFromBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := New(Config{OllamaBaseURL: srv.URL}, nil)
	_, err := a.Chat(context.Background(), userTurn, Options{Timeout: 50 * time.Millisecond})

	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if _, ok := AsBackendError(err); ok {
		t.Error("timeout must not be classified as backend error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected timeout to unwrap to context.DeadlineExceeded")
	}
}

func TestChat_UnreachableBackend(t *testing.T) {
	a := New(Config{OllamaBaseURL: "http://local.invalid"}, nil)
	a.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	_, err := a.Chat(context.Background(), userTurn, Options{})
	be, ok := AsBackendError(err)
	if !ok {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if be.StatusCode != 0 || be.Provider != ProviderLocal {
		t.Errorf("unexpected backend error %+v", be)
	}
}

func readStream(t *testing.T, s *Stream) []StreamChunk {
	t.Helper()
	defer s.Close()
	data, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return decodeChunks(t, string(data))
}

func TestChatStream_HostedTranslatesSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if req := decodeRequest(t, r); !req.Stream {
			t.Error("expected stream=true")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range strings.SplitAfter(sseFixture, "\n\n") {
			io.WriteString(w, part)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	a := New(Config{OpenAIAPIKey: "sk", OpenAIBaseURL: srv.URL}, nil)
	s, err := a.ChatStream(context.Background(), userTurn, Options{})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if s.Provider != ProviderHosted {
		t.Errorf("provider = %q, want hosted", s.Provider)
	}

	chunks := readStream(t, s)
	assertSingleTerminal(t, chunks)
	if got := joinContent(chunks); got != "Hello" {
		t.Errorf("content = %q, want Hello", got)
	}
}

func TestChatStream_LocalNormalizesNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, "{\"message\":{\"content\":\"a\"},\"done\":false}\n{broken\n")
		w.(http.Flusher).Flush()
		io.WriteString(w, "{\"message\":{\"content\":\"b\"},\"done\":false}\n{\"message\":{\"content\":\"\"},\"done\":true}\n")
	}))
	defer srv.Close()

	a := New(Config{OllamaBaseURL: srv.URL}, nil)
	s, err := a.ChatStream(context.Background(), userTurn, Options{})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	chunks := readStream(t, s)
	assertSingleTerminal(t, chunks)
	if got := joinContent(chunks); got != "ab" {
		t.Errorf("content = %q, want ab", got)
	}
}

func TestChatStream_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	a := New(Config{OllamaBaseURL: srv.URL}, nil)
	_, err := a.ChatStream(context.Background(), userTurn, Options{})
	be, ok := AsBackendError(err)
	if !ok || be.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 BackendError, got %v", err)
	}
	if !strings.Contains(be.Body, "model not found") {
		t.Errorf("body = %q", be.Body)
	}
}

func TestChatStream_TimeoutBeforeHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := New(Config{OllamaBaseURL: srv.URL}, nil)
	_, err := a.ChatStream(context.Background(), userTurn, Options{Timeout: 50 * time.Millisecond})
	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestChatStream_CloseCancelsBackendRequest(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, "{\"message\":{\"content\":\"first\"},\"done\":false}\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(released)
	}))
	defer srv.Close()

	a := New(Config{OllamaBaseURL: srv.URL}, nil)
	s, err := a.ChatStream(context.Background(), userTurn, Options{})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	buf := make([]byte, 256)
	if _, err := s.Read(buf); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("backend request was not cancelled after the stream was closed")
	}
}

func TestLocalModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"qwen3:4b","size":2500000000},{"name":"llama3.2:3b","size":2000000000}]}`))
	}))
	defer srv.Close()

	models, err := New(Config{OllamaBaseURL: srv.URL + "/"}, nil).LocalModels(context.Background())
	if err != nil {
		t.Fatalf("LocalModels failed: %v", err)
	}
	if len(models) != 2 || models[0].Name != "qwen3:4b" || models[1].Size != 2000000000 {
		t.Errorf("unexpected models %+v", models)
	}

	if _, err := New(Config{OpenAIAPIKey: "sk"}, nil).LocalModels(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured without a local backend, got %v", err)
	}
}
