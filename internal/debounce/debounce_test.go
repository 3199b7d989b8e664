package debounce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/dohrollout/internal/model"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (fc *fakeClock) now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.t
}

func (fc *fakeClock) advance(d time.Duration) {
	fc.mu.Lock()
	fc.t = fc.t.Add(d)
	fc.mu.Unlock()
}

func newTestDebouncer(linkUp *bool) (*Debouncer, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := New(func() bool { return *linkUp })
	d.TimeNow = clock.now
	return d, clock
}

func TestDebouncer(t *testing.T) {
	type step struct {
		after  time.Duration
		kind   model.NetworkEventKind
		linkUp bool
		expect bool
	}

	type testcase struct {
		name  string
		steps []step
	}

	testcases := []testcase{{
		name: "two changed events 10 seconds apart fire once",
		steps: []step{
			{after: 0, kind: model.NetworkChanged, linkUp: true, expect: true},
			{after: 10 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: false},
		},
	}, {
		name: "two changed events 40 seconds apart fire twice",
		steps: []step{
			{after: 0, kind: model.NetworkChanged, linkUp: true, expect: true},
			{after: 40 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: true},
		},
	}, {
		name: "exactly at the window boundary we do not fire",
		steps: []step{
			{after: 0, kind: model.NetworkChanged, linkUp: true, expect: true},
			{after: 30 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: false},
		},
	}, {
		name: "dropped events do not restart the window",
		steps: []step{
			{after: 0, kind: model.NetworkChanged, linkUp: true, expect: true},
			{after: 20 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: false},
			{after: 20 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: true},
		},
	}, {
		name: "up always fires and restarts the window",
		steps: []step{
			{after: 0, kind: model.NetworkChanged, linkUp: true, expect: true},
			{after: time.Second, kind: model.NetworkUp, linkUp: true, expect: true},
			{after: time.Second, kind: model.NetworkUp, linkUp: false, expect: true},
			{after: 29 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: false},
			{after: 2 * time.Second, kind: model.NetworkChanged, linkUp: true, expect: true},
		},
	}, {
		name: "changed with the link down is dropped",
		steps: []step{
			{after: 0, kind: model.NetworkChanged, linkUp: false, expect: false},
			{after: time.Second, kind: model.NetworkChanged, linkUp: true, expect: true},
		},
	}, {
		name: "unknown events are dropped",
		steps: []step{
			{after: 0, kind: model.NetworkEventKind("down"), linkUp: true, expect: false},
		},
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			linkUp := true
			d, clock := newTestDebouncer(&linkUp)
			var fired []bool
			var expect []bool
			for _, s := range tc.steps {
				clock.advance(s.after)
				linkUp = s.linkUp
				fired = append(fired, d.OnNetworkEvent(s.kind))
				expect = append(expect, s.expect)
			}
			if diff := cmp.Diff(expect, fired); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDebouncerFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	linkUp := true // never written after this point
	d, clock := newTestDebouncer(&linkUp)
	events := make(chan model.NetworkEventKind)
	fired := d.Filter(ctx, events)

	go func() {
		events <- model.NetworkChanged
		events <- model.NetworkChanged // dropped: same instant
		clock.advance(time.Minute)
		events <- model.NetworkUp
		close(events)
	}()

	var got []model.NetworkEventKind
	for kind := range fired {
		got = append(got, kind)
	}
	expect := []model.NetworkEventKind{model.NetworkChanged, model.NetworkUp}
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Fatal(diff)
	}
}
