package rollout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/dohrollout/internal/mocks"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/optional"
)

// promptRecorder is a prompt surface recording the prompts it shows.
type promptRecorder struct {
	err       error
	shown     []*model.PromptSpec
	responses chan *model.PromptResponse
}

func (pr *promptRecorder) surface() *mocks.PromptSurface {
	return &mocks.PromptSurface{
		MockShow: func(ctx context.Context, spec *model.PromptSpec) (<-chan *model.PromptResponse, error) {
			if pr.err != nil {
				return nil, pr.err
			}
			pr.shown = append(pr.shown, spec)
			pr.responses = make(chan *model.PromptResponse, 1)
			return pr.responses, nil
		},
	}
}

func newTestDoorhanger(env *testEnv, pr *promptRecorder) *Doorhanger {
	d := NewDoorhanger(env.sm, pr.surface(), nil, model.DiscardLogger)
	d.newID = func() string {
		return "prompt-1"
	}
	return d
}

func (env *testEnv) mustState(t *testing.T, expect model.RolloutState) {
	state, err := env.sm.State()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(optional.Some(expect), state, stateComparer); diff != "" {
		t.Fatal(diff)
	}
}

func (env *testEnv) mustPromptStatus(t *testing.T, expect PromptStatus) {
	status, err := env.sm.PromptStatus()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(expect, status); diff != "" {
		t.Fatal(diff)
	}
}

func nextEvent(t *testing.T, d *Doorhanger) *PromptEvent {
	select {
	case ev := <-d.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
		return nil
	}
}

func TestDoorhanger(t *testing.T) {
	t.Run("a disable verdict never prompts", func(t *testing.T) {
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(context.Background(), model.VerdictDisable); err != nil {
			t.Fatal(err)
		}
		if len(pr.shown) != 0 {
			t.Fatal("should not have prompted")
		}
		env.mustState(t, model.StateDisabled)
		env.mustPromptStatus(t, PromptStatus{Kind: PromptNotShown})
	})

	t.Run("the user accepts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		if len(pr.shown) != 1 || pr.shown[0].ID != "prompt-1" || pr.shown[0].Message == "" {
			t.Fatal("unexpected prompts", pr.shown)
		}
		if d.Pending() != "prompt-1" {
			t.Fatal("expected a pending prompt")
		}
		env.mustState(t, model.StateEnabled)
		env.mustPromptStatus(t, PromptStatus{Kind: PromptShown})

		pr.responses <- &model.PromptResponse{PromptID: "prompt-1", Action: model.PromptAccept, TabID: 7}
		close(pr.responses)
		if err := d.Handle(ctx, nextEvent(t, d)); err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateUIOk)
		env.mustPromptStatus(t, PromptStatus{Kind: PromptResolved, Decision: model.DecisionUIOk, Reported: true})
		if d.Pending() != "" {
			t.Fatal("expected no pending prompt")
		}

		// the expiration that follows the response is harmless
		if err := d.Handle(ctx, nextEvent(t, d)); err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateUIOk)
	})

	t.Run("the user declines", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		err := d.Decline(ctx, &model.PromptResponse{PromptID: "prompt-1", Action: model.PromptDecline})
		if err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateUIDisabled)
		snap := env.snapshot(t)
		if !snap.DisableHeuristics || snap.DoorhangerDecision != model.DecisionUIDisabled {
			t.Fatal("unexpected flags", snap)
		}
		if diff := cmp.Diff(optional.Some[int64](5), env.liveMode(t), snapshotComparer); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a spurious decline after accepting changes nothing", func(t *testing.T) {
		ctx := context.Background()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		resp := &model.PromptResponse{PromptID: "prompt-1"}
		if err := d.Accept(ctx, resp); err != nil {
			t.Fatal(err)
		}
		if err := d.Decline(ctx, resp); err != nil {
			t.Fatal(err)
		}
		if _, err := env.sm.ShouldShowDoorhanger(); err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateUIOk)
		env.mustPromptStatus(t, PromptStatus{Kind: PromptResolved, Decision: model.DecisionUIOk, Reported: true})
	})

	t.Run("responses for another prompt are ignored", func(t *testing.T) {
		ctx := context.Background()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		if err := d.Accept(ctx, &model.PromptResponse{PromptID: "prompt-0"}); err != nil {
			t.Fatal(err)
		}
		env.mustPromptStatus(t, PromptStatus{Kind: PromptShown})
		if d.Pending() != "prompt-1" {
			t.Fatal("expected the prompt to be still pending")
		}
	})

	t.Run("failing to show the prompt enables DoH", func(t *testing.T) {
		env, pr := newTestEnv(), &promptRecorder{err: errors.New("mocked error")}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(context.Background(), model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateEnabled)
		env.mustPromptStatus(t, PromptStatus{Kind: PromptNotShown})
		if d.Pending() != "" {
			t.Fatal("expected no pending prompt")
		}
	})

	t.Run("failing to record the prompt takes it down", func(t *testing.T) {
		env := newTestEnv()
		expected := errors.New("mocked error")
		env.sm.flags.kvs = &mocks.KeyValueStore{
			MockGet:    env.kvs.Get,
			MockDelete: env.kvs.Delete,
			MockSet: func(key string, value []byte) error {
				if key == KeyDoorhangerShown {
					return expected
				}
				return env.kvs.Set(key, value)
			},
		}
		var promptCtx context.Context
		surface := &mocks.PromptSurface{
			MockShow: func(ctx context.Context, spec *model.PromptSpec) (<-chan *model.PromptResponse, error) {
				promptCtx = ctx
				return make(chan *model.PromptResponse), nil
			},
		}
		d := NewDoorhanger(env.sm, surface, nil, model.DiscardLogger)
		if err := d.MaybePrompt(context.Background(), model.VerdictEnable); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		select {
		case <-promptCtx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("the prompt is still up")
		}
		if d.Pending() != "" {
			t.Fatal("expected no pending prompt")
		}
		env.mustPromptStatus(t, PromptStatus{Kind: PromptNotShown})
	})

	t.Run("a pending prompt suppresses timeout inference", func(t *testing.T) {
		ctx := context.Background()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		if err := d.MaybePrompt(ctx, model.VerdictDisable); err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateDisabled)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		env.mustState(t, model.StateEnabled)
		env.mustPromptStatus(t, PromptStatus{Kind: PromptShown})
		if len(pr.shown) != 1 {
			t.Fatal("should have prompted once")
		}
	})

	t.Run("an expired prompt is resolved as a timeout on the next pass", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		close(pr.responses)
		ev := nextEvent(t, d)
		if ev.Response != nil || ev.PromptID != "prompt-1" {
			t.Fatal("unexpected event", ev)
		}
		if err := d.Handle(ctx, ev); err != nil {
			t.Fatal(err)
		}
		if d.Pending() != "" {
			t.Fatal("expected no pending prompt")
		}
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		env.mustPromptStatus(t, PromptStatus{Kind: PromptResolved, Decision: model.DecisionTimeout, Reported: true})
		env.mustState(t, model.StateEnabled)
		if len(pr.shown) != 1 {
			t.Fatal("should have prompted once")
		}
		expectEvents := [][]string{
			{"doh", "state", "enabled", "null"},
			{"doh", "state", "UITimeout", "null"},
			{"doh", "doorhanger", "timeout", "null"},
			{"doh", "state", "enabled", "null"},
		}
		if diff := cmp.Diff(expectEvents, env.telemetry()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("OnPromptResolved", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		env, pr := newTestEnv(), &promptRecorder{}
		d := newTestDoorhanger(env, pr)
		resolved := d.OnPromptResolved(ctx)
		if err := d.MaybePrompt(ctx, model.VerdictEnable); err != nil {
			t.Fatal(err)
		}
		if err := d.Accept(ctx, &model.PromptResponse{PromptID: "prompt-1"}); err != nil {
			t.Fatal(err)
		}
		select {
		case decision := <-resolved:
			if decision != model.DecisionUIOk {
				t.Fatal("unexpected decision", decision)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout")
		}
	})
}
