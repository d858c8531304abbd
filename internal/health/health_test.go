package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer up.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	// Grab a free port, then release it so nothing is listening.
	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedAddr := closed.Addr().String()
	closed.Close()

	probes := []Probe{
		{ID: "web", Label: "Web", Target: up.URL, Kind: KindHTTP},
		{ID: "db", Label: "DB", Target: ln.Addr().String(), Kind: KindTCP},
		{ID: "gone", Label: "Gone", Target: closedAddr, Kind: KindTCP},
		{ID: "bad", Label: "Bad", Target: "://not a url", Kind: KindHTTP},
	}

	results := NewChecker(probes, time.Second).Check(context.Background())
	if len(results) != len(probes) {
		t.Fatalf("expected %d results, got %d", len(probes), len(results))
	}

	want := []string{StatusOnline, StatusOnline, StatusOffline, StatusOffline}
	for i, r := range results {
		if r.ID != probes[i].ID {
			t.Errorf("result %d id = %s, want %s", i, r.ID, probes[i].ID)
		}
		if r.Status != want[i] {
			t.Errorf("%s status = %s, want %s", r.ID, r.Status, want[i])
		}
		if r.Status == StatusOffline && r.Latency != -1 {
			t.Errorf("%s offline latency = %d, want -1", r.ID, r.Latency)
		}
		if r.Status == StatusOnline && r.Latency < 0 {
			t.Errorf("%s online latency = %d", r.ID, r.Latency)
		}
	}
}

func TestCheckTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()

	start := time.Now()
	results := NewChecker([]Probe{{ID: "slow", Target: slow.URL}}, 50*time.Millisecond).Check(context.Background())
	if results[0].Status != StatusOffline {
		t.Errorf("expected offline, got %s", results[0].Status)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("probe did not respect its timeout")
	}
}
