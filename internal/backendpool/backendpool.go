// Package backendpool implements the binding daemon's HTTPS client pool
// (spec.md §4.E): N backends with a shared health state machine, admission
// control, and most-severe-error failover, each fronted by a go-resty
// client either multiplexed over HTTP/2 or pooled over HTTP/1.1.
package backendpool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	resty "github.com/go-resty/resty/v2"

	"github.com/webnis/webnis/internal/backoff"
	"github.com/webnis/webnis/internal/config"
	"github.com/webnis/webnis/internal/logger"
)

// State is a backend's position in the healthy/failing/dead machine.
type State int32

const (
	StateHealthy State = iota
	StateFailing
	StateDead
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateFailing:
		return "failing"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ErrAllBackendsDown is returned when every backend declined the request —
// either by admission or by being dead — per spec.md §7 (503).
var ErrAllBackendsDown = errors.New("backendpool: all backends down")

// Severity ranks an observed failure the way spec.md §4.E's "most severe
// observed" failover rule requires: transport > 5xx > 4xx.
type Severity int

const (
	SeverityNone Severity = iota
	Severity4xx
	Severity5xx
	SeverityTransport
)

// backend is one pool member: its client, admission semaphore, and health
// state, each guarded independently so unrelated backends never contend.
type backend struct {
	baseURL string
	client  *resty.Client

	admission chan struct{}

	state            atomic.Int32
	consecutiveFails atomic.Int32
	probeAttempt     atomic.Int32

	mu        sync.Mutex
	lastProbe time.Time
	probeWake *time.Timer
}

func (b *backend) State() State { return State(b.state.Load()) }

// Pool is the daemon's live backend set, round-robin dispatched with
// health-aware admission and failover.
type Pool struct {
	backends     []*backend
	rr           atomic.Uint64
	probePath    string
	probePolicy  *backoff.ExponentialBackoffPolicy
	log          logger.Logger
	probeStop    chan struct{}
	probeWG      sync.WaitGroup
}

// New builds a Pool from a validated DaemonConfig. probePath is the known-
// good map URL path a dead backend's background probe issues a GET
// against (e.g. "/.well-known/webnis/<domain>/map/passwd?name=probe").
func New(cfg *config.DaemonConfig, probePath string, log logger.Logger) *Pool {
	admission := cfg.Concurrency
	if cfg.HTTP2Only && admission < 100 {
		admission = 100
	}

	p := &Pool{
		probePath:   probePath,
		probePolicy: backoff.NewExponentialBackoffPolicy(10 * time.Second),
		log:         log,
		probeStop:   make(chan struct{}),
	}
	p.probePolicy.MaxInterval = 60 * time.Second

	for _, base := range cfg.Backends {
		b := &backend{
			baseURL:   base,
			client:    newRestyClient(base, cfg),
			admission: make(chan struct{}, admission),
		}
		p.backends = append(p.backends, b)
	}
	return p
}

func newRestyClient(baseURL string, cfg *config.DaemonConfig) *resty.Client {
	client := resty.New().SetBaseURL(baseURL).SetTimeout(cfg.RequestTimeout)
	if cfg.Token != "" {
		client.SetHeader(cfg.HTTPAuthHeader, cfg.HTTPAuthScheme+" "+cfg.Token)
	}
	if cfg.HTTP2Only {
		client.SetTransport(&http2.Transport{})
	} else {
		client.SetTransport(&http.Transport{MaxConnsPerHost: cfg.Concurrency})
	}
	return client
}

// Close stops every backend's background probe loop. Pending probe timers
// are canceled immediately rather than left to expire on their own —
// closing signals probeStop first so any probe that does slip through
// between Stop and cancellation still returns without rescheduling.
func (p *Pool) Close() {
	close(p.probeStop)
	for _, b := range p.backends {
		b.mu.Lock()
		if b.probeWake != nil {
			if b.probeWake.Stop() {
				p.probeWG.Done()
			}
			b.probeWake = nil
		}
		b.mu.Unlock()
	}
	p.probeWG.Wait()
}

// Do issues an HTTPS request against the first backend that is not dead
// (healthy or failing) and has available admission, starting from a
// round-robin cursor, falling through to the next candidate on denial.
// Every backend reachable through this sweep that errors is recorded via
// markFailure; the final error returned is the most severe observed.
func (p *Pool) Do(ctx context.Context, method, path string, body map[string]string) (*resty.Response, error) {
	start := int(p.rr.Add(1) - 1)
	worstSeverity := SeverityNone
	var worstErr error

	for i := 0; i < len(p.backends); i++ {
		b := p.backends[(start+i)%len(p.backends)]
		if b.State() == StateDead {
			continue
		}
		select {
		case b.admission <- struct{}{}:
		default:
			continue // no admission slot; try the next backend
		}

		resp, err := p.request(ctx, b, method, path, body)
		<-b.admission

		severity, failErr := classify(resp, err)
		if severity == SeverityNone {
			p.markSuccess(b)
			return resp, nil
		}
		p.markFailure(b, failErr)
		if severity > worstSeverity {
			worstSeverity = severity
			worstErr = failErr
		}
	}

	if worstErr != nil {
		return nil, worstErr
	}
	return nil, ErrAllBackendsDown
}

func (p *Pool) request(ctx context.Context, b *backend, method, path string, body map[string]string) (*resty.Response, error) {
	req := b.client.R().SetContext(ctx)
	if body != nil {
		req.SetFormData(body)
	}
	switch method {
	case http.MethodGet:
		return req.Get(path)
	case http.MethodPost:
		return req.Post(path)
	default:
		return nil, fmt.Errorf("backendpool: unsupported method %s", method)
	}
}

// classify turns a resty result into a failover severity: a transport
// error (resp is nil) outranks any HTTP status, 5xx outranks 4xx, and a
// 2xx/401/404 response is not a failure at all — 401 and 404 are valid
// envelopes per spec.md §4.D, surfaced to the caller, not retried against
// another backend.
func classify(resp *resty.Response, err error) (Severity, error) {
	if err != nil {
		return SeverityTransport, err
	}
	switch {
	case resp.StatusCode() >= 500:
		return Severity5xx, fmt.Errorf("backendpool: %s", resp.Status())
	case resp.StatusCode() >= 400 && resp.StatusCode() != http.StatusNotFound && resp.StatusCode() != http.StatusUnauthorized:
		return Severity4xx, fmt.Errorf("backendpool: %s", resp.Status())
	default:
		return SeverityNone, nil
	}
}

func (p *Pool) markSuccess(b *backend) {
	b.consecutiveFails.Store(0)
	b.probeAttempt.Store(0)
	b.state.Store(int32(StateHealthy))
}

// markFailure applies the healthy->failing->dead transitions of spec.md
// §4.E: any failure moves a healthy backend to failing; a second
// consecutive failure moves it to dead, where it stays until a background
// probe succeeds.
func (p *Pool) markFailure(b *backend, err error) {
	fails := b.consecutiveFails.Add(1)
	prev := State(b.state.Load())

	switch prev {
	case StateHealthy:
		b.state.Store(int32(StateFailing))
	case StateFailing:
		if fails >= 2 {
			b.state.Store(int32(StateDead))
			p.scheduleProbe(b)
		}
	}
	if p.log != nil {
		p.log.Warnf("backendpool: %s failure (%s -> %s): %v", b.baseURL, prev, State(b.state.Load()), err)
	}
}

// scheduleProbe starts (or restarts) a dead backend's background probe
// loop, retrying on the configured exponential backoff until one succeeds.
func (p *Pool) scheduleProbe(b *backend) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.probeWake != nil {
		return // a probe loop is already running for this backend
	}

	attempt := int(b.probeAttempt.Add(1)) - 1
	delay, _ := p.probePolicy.ComputeNextInterval(attempt, 0, nil)
	p.probeWG.Add(1)
	b.probeWake = time.AfterFunc(delay, func() { p.runProbe(b) })
}

func (p *Pool) runProbe(b *backend) {
	defer p.probeWG.Done()

	b.mu.Lock()
	b.probeWake = nil
	b.mu.Unlock()

	select {
	case <-p.probeStop:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := b.client.R().SetContext(ctx).Get(p.probePath)
	b.mu.Lock()
	b.lastProbe = time.Now()
	b.mu.Unlock()

	if err == nil && resp.StatusCode() < 500 {
		p.markSuccess(b)
		return
	}
	p.scheduleProbe(b)
}
