package rollout

//
// Persisted flags
//

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ooni/dohrollout/internal/kvstore"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/optional"
	"github.com/ooni/dohrollout/internal/runtimex"
)

// Keys of the persisted flags. Each value is JSON encoded. Installations
// being upgraded read these keys back, so they must never change.
const (
	KeyPreviousTRRMode    = "doh-rollout.previous.trr.mode"
	KeyDisableHeuristics  = "doh-rollout.disable-heuristics"
	KeyDoorhangerShown    = "doh-rollout.doorhanger-shown"
	KeyDoorhangerPingSent = "doh-rollout.doorhanger-ping-sent"
	KeyDoorhangerDecision = "doh-rollout.doorhanger-decision"
	KeyDoneFirstRun       = "doh-rollout.doneFirstRun"
	KeyState              = "doh-rollout.state"
)

// flagKeys lists the keys we clear when uninstalling.
var flagKeys = []string{
	KeyPreviousTRRMode,
	KeyDisableHeuristics,
	KeyDoorhangerShown,
	KeyDoorhangerPingSent,
	KeyDoorhangerDecision,
	KeyDoneFirstRun,
}

// Preferences read or written by the engine.
const (
	// PrefTRRMode is the preference controlling the DoH mode.
	PrefTRRMode = "network.trr.mode"

	// PrefEnabled is the kill switch of the rollout engine.
	PrefEnabled = "doh-rollout.enabled"
)

// flags gives typed access to the persisted flags.
type flags struct {
	kvs model.KeyValueStore
}

// get returns whether the key exists and, if so, unmarshals it into out.
func (f *flags) get(key string, out any) (bool, error) {
	data, err := f.kvs.Get(key)
	if errors.Is(err, kvstore.ErrNoSuchKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("rollout: cannot parse %s: %w", key, err)
	}
	return true, nil
}

func (f *flags) set(key string, value any) error {
	return f.kvs.Set(key, runtimex.Try1(json.Marshal(value)))
}

func (f *flags) getBool(key string) (bool, error) {
	var value bool
	_, err := f.get(key, &value)
	return value, err
}

func (f *flags) getInt(key string) (optional.Value[int64], error) {
	var value int64
	found, err := f.get(key, &value)
	if err != nil || !found {
		return optional.None[int64](), err
	}
	return optional.Some(value), nil
}

func (f *flags) getDecision() (model.PromptDecision, error) {
	var value string
	_, err := f.get(KeyDoorhangerDecision, &value)
	return model.PromptDecision(value), err
}

func (f *flags) getState() (optional.Value[model.RolloutState], error) {
	var value string
	found, err := f.get(KeyState, &value)
	if err != nil || !found {
		return optional.None[model.RolloutState](), err
	}
	state, err := model.ParseRolloutState(value)
	if err != nil {
		return optional.None[model.RolloutState](), err
	}
	return optional.Some(state), nil
}

// Snapshot is a point-in-time copy of the persisted flags.
type Snapshot struct {
	State              optional.Value[model.RolloutState] `json:"state"`
	PreviousTRRMode    optional.Value[int64]              `json:"previous_trr_mode"`
	DisableHeuristics  bool                               `json:"disable_heuristics"`
	DoorhangerShown    bool                               `json:"doorhanger_shown"`
	DoorhangerPingSent bool                               `json:"doorhanger_ping_sent"`
	DoorhangerDecision model.PromptDecision               `json:"doorhanger_decision"`
	DoneFirstRun       bool                               `json:"done_first_run"`
}

func (f *flags) snapshot() (*Snapshot, error) {
	var (
		err error
		out = &Snapshot{}
	)
	if out.State, err = f.getState(); err != nil {
		return nil, err
	}
	if out.PreviousTRRMode, err = f.getInt(KeyPreviousTRRMode); err != nil {
		return nil, err
	}
	if out.DisableHeuristics, err = f.getBool(KeyDisableHeuristics); err != nil {
		return nil, err
	}
	if out.DoorhangerShown, err = f.getBool(KeyDoorhangerShown); err != nil {
		return nil, err
	}
	if out.DoorhangerPingSent, err = f.getBool(KeyDoorhangerPingSent); err != nil {
		return nil, err
	}
	if out.DoorhangerDecision, err = f.getDecision(); err != nil {
		return nil, err
	}
	if out.DoneFirstRun, err = f.getBool(KeyDoneFirstRun); err != nil {
		return nil, err
	}
	return out, nil
}
