package captiveportal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/dohrollout/internal/model"
)

func TestTransition(t *testing.T) {
	errMocked := errors.New("mocked error")
	cases := []struct {
		previous model.CaptivePortalState
		success  bool
		err      error
		expect   model.CaptivePortalState
	}{
		{"", true, nil, model.CaptivePortalNotCaptive},
		{"", false, nil, model.CaptivePortalLocked},
		{"", false, errMocked, model.CaptivePortalUnknown},
		{model.CaptivePortalLocked, true, nil, model.CaptivePortalUnlocked},
		{model.CaptivePortalUnlocked, true, nil, model.CaptivePortalUnlocked},
		{model.CaptivePortalUnlocked, false, nil, model.CaptivePortalLocked},
		{model.CaptivePortalNotCaptive, true, nil, model.CaptivePortalNotCaptive},
		{model.CaptivePortalUnknown, true, nil, model.CaptivePortalNotCaptive},
		{model.CaptivePortalNotCaptive, false, errMocked, model.CaptivePortalUnknown},
	}
	for _, tc := range cases {
		got := transition(tc.previous, tc.success, tc.err)
		if got != tc.expect {
			t.Fatalf("%+v: got %s", tc, got)
		}
	}
}

// portal simulates a network with a captive portal.
type portal struct {
	mu       sync.Mutex
	loggedIn bool
}

func (p *portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	loggedIn := p.loggedIn
	p.mu.Unlock()
	if !loggedIn {
		http.Redirect(w, r, "http://portal.example/login", http.StatusFound)
		return
	}
	w.Write([]byte("success\n"))
}

func (p *portal) login() {
	p.mu.Lock()
	p.loggedIn = true
	p.mu.Unlock()
}

func TestDetector(t *testing.T) {
	p := &portal{}
	srv := httptest.NewServer(p)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &Detector{
		URL:          srv.URL + "/success.txt",
		ExpectedBody: "success\n",
		Timeout:      5 * time.Second,
	}
	changes := d.Changes(ctx)

	if state := d.State(ctx); state != model.CaptivePortalLocked {
		t.Fatal("unexpected state", state)
	}
	if state := d.Check(ctx); state != model.CaptivePortalLocked {
		t.Fatal("unexpected state", state)
	}
	p.login()
	if state := d.Check(ctx); state != model.CaptivePortalUnlocked {
		t.Fatal("unexpected state", state)
	}
	if state := d.State(ctx); state != model.CaptivePortalUnlocked {
		t.Fatal("State should return the cached state", state)
	}
	srv.Close()
	if state := d.Check(ctx); state != model.CaptivePortalUnknown {
		t.Fatal("unexpected state", state)
	}

	cancel()
	var got []model.CaptivePortalState
	for state := range changes {
		got = append(got, state)
	}
	expect := []model.CaptivePortalState{
		model.CaptivePortalLocked,
		model.CaptivePortalUnlocked,
		model.CaptivePortalUnknown,
	}
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestDetectorWithUnexpectedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>please login</html>"))
	}))
	defer srv.Close()
	d := &Detector{URL: srv.URL, ExpectedBody: "success\n"}
	if state := d.State(context.Background()); state != model.CaptivePortalLocked {
		t.Fatal("unexpected state", state)
	}
}

func TestDetectorRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("success\n"))
	}))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Detector{URL: srv.URL, ExpectedBody: "success\n"}
	changes := d.Changes(ctx)
	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Hour)
		close(done)
	}()
	if state := <-changes; state != model.CaptivePortalNotCaptive {
		t.Fatal("unexpected state", state)
	}
	cancel()
	<-done
}
