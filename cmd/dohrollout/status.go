package main

//
// The status subcommand
//

import (
	"fmt"

	"github.com/apex/log"
	"github.com/ooni/dohrollout/internal/rollout"
	"github.com/spf13/cobra"
)

func statusSubcommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Shows the rollout state",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			return printStatus(sess)
		},
		Args: cobra.NoArgs,
	}
}

func printStatus(sess *session) error {
	snap, err := sess.sm.Snapshot()
	if err != nil {
		return err
	}
	status, err := sess.sm.PromptStatus()
	if err != nil {
		return err
	}
	mode := "<unset>"
	userValue, err := sess.prefs.PrefHasUserValue(rollout.PrefTRRMode)
	if err != nil {
		return err
	}
	if userValue {
		value, err := sess.prefs.GetIntPref(rollout.PrefTRRMode, 0)
		if err != nil {
			return err
		}
		mode = fmt.Sprintf("%d", value)
	}
	enabled, err := sess.prefs.GetBoolPref(rollout.PrefEnabled, true)
	if err != nil {
		return err
	}
	previous := "<unset>"
	if !snap.PreviousTRRMode.IsNone() {
		previous = fmt.Sprintf("%d", snap.PreviousTRRMode.Unwrap())
	}
	log.WithFields(log.Fields{"type": "section_title", "title": "DoH rollout"}).Info("")
	log.WithFields(log.Fields{
		"type":               "table",
		"state":              string(snap.State.UnwrapOr("<unset>")),
		rollout.PrefTRRMode:  mode,
		"previous_trr_mode":  previous,
		rollout.PrefEnabled:  enabled,
		"disable_heuristics": snap.DisableHeuristics,
		"done_first_run":     snap.DoneFirstRun,
		"doorhanger":         status.String(),
	}).Info("status")
	return nil
}
