package n8n

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/commandcenter/internal/connectors"
)

func TestTriggerJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webhook/daily-sync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["source"] != "test" {
			t.Errorf("unexpected payload %v", payload)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		io.WriteString(w, `{"received":true}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/", 0, nil).Trigger(context.Background(), " daily-sync ", map[string]any{"source": "test"})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected ok, got %+v", res)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["received"] != true {
		t.Errorf("unexpected data %#v", res.Data)
	}
}

func TestTriggerTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "Workflow was started")
	}))
	defer srv.Close()

	res, err := New(srv.URL, 0, nil).Trigger(context.Background(), "wf", nil)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if !res.OK || res.Data != "Workflow was started" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestTriggerFailureMessage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"message field", "application/json", `{"code":404,"message":"The requested webhook is not registered."}`, "The requested webhook is not registered."},
		{"no message", "application/json", `{"code":500}`, "n8n request failed (500)"},
		{"text body", "text/html", "<h1>oops</h1>", "n8n request failed (500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			res, err := New(srv.URL, 0, nil).Trigger(context.Background(), "wf", nil)
			if err != nil {
				t.Fatalf("Trigger failed: %v", err)
			}
			if res.OK || res.Error != tt.want {
				t.Errorf("got %+v, want error %q", res, tt.want)
			}
		})
	}
}

func TestTriggerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	res, err := New(srv.URL, 50*time.Millisecond, nil).Trigger(context.Background(), "wf", nil)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if res.OK || !strings.HasPrefix(res.Error, "Timeout") {
		t.Errorf("expected timeout result, got %+v", res)
	}
}

func TestTriggerValidation(t *testing.T) {
	if _, err := New("", 0, nil).Trigger(context.Background(), "wf", nil); !errors.Is(err, connectors.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New("http://n8n.local", 0, nil).Trigger(context.Background(), "  ", nil); err == nil {
		t.Error("expected error for empty workflow id")
	}
}
