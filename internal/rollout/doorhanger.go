package rollout

//
// Doorhanger workflow
//

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ooni/dohrollout/internal/model"
)

// DefaultPromptSpec returns the doorhanger we show by default. The ID
// is filled by the Doorhanger for each prompt instance.
func DefaultPromptSpec() *model.PromptSpec {
	return &model.PromptSpec{
		Title:        "DNS over HTTPS",
		Message:      "We are enabling DNS over HTTPS to protect your DNS lookups from eavesdropping and tampering.",
		AcceptLabel:  "OK, got it",
		DeclineLabel: "Disable protection",
		LearnMoreURL: "https://support.mozilla.org/kb/firefox-dns-over-https",
	}
}

// PromptEvent is an event concerning a prompt instance.
type PromptEvent struct {
	// PromptID is the ID of the prompt.
	PromptID string

	// Response is the response or nil when the prompt
	// expired without the user pressing any button.
	Response *model.PromptResponse
}

// Doorhanger mediates enable verdicts through the doorhanger. Like the
// StateMachine, its methods must be serialized by the caller, except for
// Events and Pending, which are safe to use from any goroutine.
type Doorhanger struct {
	events  chan *PromptEvent
	logger  model.Logger
	mu      sync.Mutex
	newID   func() string
	pending string
	sm      *StateMachine
	spec    *model.PromptSpec
	surface model.PromptSurface
}

// NewDoorhanger creates a new Doorhanger. When spec is nil, we
// use the return value of DefaultPromptSpec.
func NewDoorhanger(sm *StateMachine, surface model.PromptSurface, spec *model.PromptSpec, logger model.Logger) *Doorhanger {
	if spec == nil {
		spec = DefaultPromptSpec()
	}
	return &Doorhanger{
		events:  make(chan *PromptEvent, 16),
		logger:  model.ValidLoggerOrDefault(logger),
		newID:   uuid.NewString,
		sm:      sm,
		spec:    spec,
		surface: surface,
	}
}

// Events returns the channel where we post prompt events. The
// owner of the Doorhanger must pass them to Handle.
func (d *Doorhanger) Events() <-chan *PromptEvent {
	return d.events
}

// Pending returns the ID of the prompt outstanding in this
// session or an empty string if there is none.
func (d *Doorhanger) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Doorhanger) setPending(id string) {
	d.mu.Lock()
	d.pending = id
	d.mu.Unlock()
}

// Forget forgets the pending prompt, if any. Use this after cancelling
// the context passed to MaybePrompt. Because the doorhanger is still
// marked as shown, we will infer a timeout the next time we evaluate.
func (d *Doorhanger) Forget() {
	d.setPending("")
}

// MaybePrompt applies the verdict. A disable verdict sets StateDisabled. An
// enable verdict shows the doorhanger if we never showed it and otherwise
// sets StateEnabled. While a doorhanger is outstanding in this session,
// enable verdicts set StateEnabled without inferring a timeout.
func (d *Doorhanger) MaybePrompt(ctx context.Context, verdict model.Verdict) error {
	if verdict == model.VerdictDisable {
		return d.sm.SetState(model.StateDisabled)
	}
	if d.Pending() != "" {
		return d.sm.SetState(model.StateEnabled)
	}
	show, err := d.sm.ShouldShowDoorhanger()
	if err != nil {
		return err
	}
	if !show {
		return d.sm.SetState(model.StateEnabled)
	}
	spec := *d.spec
	spec.ID = d.newID()
	promptCtx, cancel := context.WithCancel(ctx)
	responses, err := d.surface.Show(promptCtx, &spec)
	if err != nil {
		cancel()
		// failing to prompt must not disable what the heuristics approved
		d.logger.Warnf("rollout: cannot show the doorhanger: %s", err.Error())
		return d.sm.SetState(model.StateEnabled)
	}
	if err := d.sm.MarkDoorhangerShown(); err != nil {
		// we cannot track an answer we could not record, so take the prompt down
		cancel()
		return err
	}
	d.setPending(spec.ID)
	go d.forward(promptCtx, cancel, spec.ID, responses)
	d.logger.Infof("rollout: showing doorhanger %s", spec.ID)
	return d.sm.SetState(model.StateEnabled)
}

// forward posts the response, if any, and the expiration of the prompt.
// It cancels the prompt's context when done.
func (d *Doorhanger) forward(ctx context.Context, cancel context.CancelFunc, id string, responses <-chan *model.PromptResponse) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case resp, good := <-responses:
			ev := &PromptEvent{PromptID: id, Response: resp}
			select {
			case d.events <- ev:
			case <-ctx.Done():
				return
			}
			if !good {
				return
			}
		}
	}
}

// Handle processes an event read from Events.
func (d *Doorhanger) Handle(ctx context.Context, ev *PromptEvent) error {
	if ev.Response == nil {
		if d.Pending() == ev.PromptID {
			// we will infer the timeout next time we evaluate
			d.logger.Infof("rollout: doorhanger %s expired", ev.PromptID)
			d.setPending("")
		}
		return nil
	}
	switch ev.Response.Action {
	case model.PromptAccept:
		return d.Accept(ctx, ev.Response)
	case model.PromptDecline:
		return d.Decline(ctx, ev.Response)
	default:
		d.logger.Warnf("rollout: unknown doorhanger action: %s", ev.Response.Action)
		return nil
	}
}

// Accept handles the user accepting the doorhanger.
func (d *Doorhanger) Accept(ctx context.Context, resp *model.PromptResponse) error {
	return d.resolve(resp, model.DecisionUIOk)
}

// Decline handles the user declining the doorhanger.
func (d *Doorhanger) Decline(ctx context.Context, resp *model.PromptResponse) error {
	return d.resolve(resp, model.DecisionUIDisabled)
}

func (d *Doorhanger) resolve(resp *model.PromptResponse, decision model.PromptDecision) error {
	if pending := d.Pending(); pending == "" || pending != resp.PromptID {
		d.logger.Warnf("rollout: ignoring response for unknown doorhanger %s", resp.PromptID)
		return nil
	}
	d.setPending("")
	_, err := d.sm.ResolvePrompt(decision)
	return err
}

// OnPromptResolved returns a channel receiving the decision when the
// doorhanger is resolved. The channel is closed when the context is done.
func (d *Doorhanger) OnPromptResolved(ctx context.Context) <-chan model.PromptDecision {
	return d.sm.SubscribePromptResolved(ctx)
}
