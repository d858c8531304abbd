// Package health probes the services the dashboard depends on.
package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 3 * time.Second

// Probe kinds.
const (
	KindHTTP = "http"
	KindTCP  = "tcp"
)

// Status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Probe describes one service to check.
type Probe struct {
	ID     string `yaml:"id" json:"id"`
	Label  string `yaml:"label" json:"label"`
	Target string `yaml:"target" json:"target"` // URL for http, host:port for tcp
	Kind   string `yaml:"kind" json:"kind"`
}

// Result is the outcome of one probe. Latency is -1 when offline.
type Result struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Status  string `json:"status"`
	Latency int64  `json:"latency"`
}

// Checker runs probes.
type Checker struct {
	probes  []Probe
	timeout time.Duration
	client  *http.Client
	dialer  *net.Dialer
}

// NewChecker creates a checker for probes.
func NewChecker(probes []Probe, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		probes:  probes,
		timeout: timeout,
		client: &http.Client{
			// A redirect still proves the service is up.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		dialer: &net.Dialer{},
	}
}

// Probes returns the configured probes.
func (c *Checker) Probes() []Probe {
	return c.probes
}

// Check runs every probe concurrently. Results keep the configured order.
func (c *Checker) Check(ctx context.Context) []Result {
	results := make([]Result, len(c.probes))
	var g errgroup.Group
	for i, p := range c.probes {
		g.Go(func() error {
			results[i] = c.check(ctx, p)
			return nil
		})
	}
	g.Wait()
	return results
}

func (c *Checker) check(ctx context.Context, p Probe) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var ok bool
	switch p.Kind {
	case KindTCP:
		ok = c.checkTCP(ctx, p.Target)
	default:
		ok = c.checkHTTP(ctx, p.Target)
	}

	r := Result{ID: p.ID, Label: p.Label, Status: StatusOffline, Latency: -1}
	if ok {
		r.Status = StatusOnline
		r.Latency = time.Since(start).Milliseconds()
	}
	return r
}

// checkHTTP treats any HTTP answer, whatever its status, as online.
func (c *Checker) checkHTTP(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func (c *Checker) checkTCP(ctx context.Context, addr string) bool {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
