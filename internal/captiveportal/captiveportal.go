// Package captiveportal detects captive portals by fetching a URL whose
// body we know in advance.
package captiveportal

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ooni/dohrollout/internal/broadcast"
	"github.com/ooni/dohrollout/internal/model"
)

// maxBodySize is the maximum number of bytes of the body we read.
const maxBodySize = 1 << 12

// Detector is a model.CaptivePortal using HTTP. A locked portal becomes an
// unlocked portal once the expected body appears, which means that the
// user logged in.
type Detector struct {
	// Client is the OPTIONAL HTTP client. We never follow redirects
	// because a redirect is how most portals intercept us.
	Client *http.Client

	// URL is the MANDATORY URL to fetch.
	URL string

	// ExpectedBody is the MANDATORY body we expect when not captive.
	ExpectedBody string

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// Timeout is the OPTIONAL timeout for each check.
	Timeout time.Duration

	bc      broadcast.Hub[model.CaptivePortalState]
	checked bool
	mu      sync.Mutex
	state   model.CaptivePortalState
}

var _ model.CaptivePortal = &Detector{}

// State implements model.CaptivePortal. Before the first check, this
// function performs the check.
func (d *Detector) State(ctx context.Context) model.CaptivePortalState {
	d.mu.Lock()
	state, checked := d.state, d.checked
	d.mu.Unlock()
	if !checked {
		return d.Check(ctx)
	}
	return state
}

// Changes implements model.CaptivePortal.
func (d *Detector) Changes(ctx context.Context) <-chan model.CaptivePortalState {
	return d.bc.Subscribe(ctx)
}

// Check fetches the URL, updates the state and notifies the
// subscribers when the state changed.
func (d *Detector) Check(ctx context.Context) model.CaptivePortalState {
	logger := model.ValidLoggerOrDefault(d.Logger)
	success, err := d.fetch(ctx)
	d.mu.Lock()
	previous := d.state
	next := transition(previous, success, err)
	d.state, d.checked = next, true
	d.mu.Unlock()
	logger.Debugf("captiveportal: GET %s... %s", d.URL, model.ErrorToStringOrOK(err))
	if next != previous {
		logger.Infof("captiveportal: %s => %s", previous, next)
		d.bc.Send(next)
	}
	return next
}

// transition computes the next state given the previous state and the
// outcome of the latest check.
func transition(previous model.CaptivePortalState, success bool, err error) model.CaptivePortalState {
	switch {
	case err != nil:
		return model.CaptivePortalUnknown
	case !success:
		return model.CaptivePortalLocked
	case previous == model.CaptivePortalLocked || previous == model.CaptivePortalUnlocked:
		return model.CaptivePortalUnlocked
	default:
		return model.CaptivePortalNotCaptive
	}
}

func (d *Detector) fetch(ctx context.Context) (bool, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", d.URL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := d.client().Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(data)) == strings.TrimSpace(d.ExpectedBody), nil
}

func (d *Detector) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Run checks every interval until the context is done.
func (d *Detector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
