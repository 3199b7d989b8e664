package model

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiscardLoggerWorksAsIntended(t *testing.T) {
	logger := DiscardLogger
	logger.Debug("foo")
	logger.Debugf("%s", "foo")
	logger.Info("foo")
	logger.Infof("%s", "foo")
	logger.Warn("foo")
	logger.Warnf("%s", "foo")
}

func TestErrorToStringOrOK(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		if ErrorToStringOrOK(nil) != "ok" {
			t.Fatal("expected ok")
		}
	})

	t.Run("on failure", func(t *testing.T) {
		err := io.EOF
		if ErrorToStringOrOK(err) != err.Error() {
			t.Fatal("not the result we expected")
		}
	})
}

// recordingLogger records the messages it receives.
type recordingLogger struct {
	lines []string
}

func (rl *recordingLogger) Debug(msg string)                       { rl.lines = append(rl.lines, "D "+msg) }
func (rl *recordingLogger) Debugf(format string, v ...interface{}) { panic("not used") }
func (rl *recordingLogger) Info(msg string)                        { rl.lines = append(rl.lines, "I "+msg) }
func (rl *recordingLogger) Infof(format string, v ...interface{})  { panic("not used") }
func (rl *recordingLogger) Warn(msg string)                        { rl.lines = append(rl.lines, "W "+msg) }
func (rl *recordingLogger) Warnf(format string, v ...interface{})  { panic("not used") }

func TestPrefixLogger(t *testing.T) {
	rl := &recordingLogger{}
	logger := NewPrefixLogger("rollout", rl)
	logger.Debugf("state %s", "enabled")
	logger.Info("ready")
	logger.Warnf("mode %d", 5)
	expect := []string{
		"D rollout: state enabled",
		"I rollout: ready",
		"W rollout: mode 5",
	}
	if diff := cmp.Diff(expect, rl.lines); diff != "" {
		t.Fatal(diff)
	}
}

func TestPrefixLoggerWithNilLogger(t *testing.T) {
	logger := NewPrefixLogger("x", nil)
	logger.Info("does not crash")
}

func TestParseRolloutState(t *testing.T) {
	for _, state := range AllRolloutStates {
		got, err := ParseRolloutState(string(state))
		if err != nil {
			t.Fatal(err)
		}
		if got != state {
			t.Fatal("unexpected state", got)
		}
	}
	if _, err := ParseRolloutState("loaded"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCaptivePortalStateIsOnline(t *testing.T) {
	expect := map[CaptivePortalState]bool{
		CaptivePortalUnknown:    false,
		CaptivePortalLocked:     false,
		CaptivePortalUnlocked:   true,
		CaptivePortalNotCaptive: true,
	}
	for state, online := range expect {
		if state.IsOnline() != online {
			t.Fatal("unexpected IsOnline for", state)
		}
	}
}
