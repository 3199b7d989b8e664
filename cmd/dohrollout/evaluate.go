package main

//
// The evaluate subcommand
//

import (
	"context"
	"os"
	"os/signal"

	"github.com/apex/log"
	"github.com/ooni/dohrollout/internal/heuristics"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/spf13/cobra"
)

// reasonManual is the evaluation reason we use without --apply.
const reasonManual = "manual"

func evaluateSubcommand(opts *globalOptions) *cobra.Command {
	apply := false
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Runs the heuristics once",
		Long: "Runs the heuristics once and prints the results. With --apply, performs " +
			"the startup pass of the rollout engine, including the doorhanger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluateMain(opts, apply)
		},
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the verdict to the rollout state")
	return cmd
}

func evaluateMain(opts *globalOptions, apply bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	if apply {
		orch := sess.newOrchestrator(sess.newCaptivePortal(), sess.newNetworkPoller())
		if err := orch.RunOnce(ctx); err != nil {
			return err
		}
		return printStatus(sess)
	}

	verdict, results := sess.newHeuristics().Evaluate(ctx, reasonManual)
	printResults(verdict, results)
	return nil
}

func printResults(verdict model.Verdict, results heuristics.Results) {
	fields := log.Fields{"type": "table"}
	for _, name := range results.Keys() {
		fields[name] = string(results[name])
	}
	log.WithFields(log.Fields{"type": "section_title", "title": "Heuristics"}).Info("")
	log.WithFields(fields).Info("results")
	log.Infof("verdict: %s", verdict)
}
