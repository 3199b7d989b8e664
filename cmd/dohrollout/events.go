package main

//
// The events subcommand
//

import (
	"time"

	"github.com/apex/log"
	"github.com/ooni/dohrollout/internal/telemetry"
	"github.com/spf13/cobra"
)

func eventsSubcommand(opts *globalOptions) *cobra.Command {
	limit := 0
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Lists the journaled telemetry events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			events, err := telemetry.ListEvents(sess.db, limit)
			if err != nil {
				return err
			}
			for _, je := range events {
				ev, err := je.Event()
				if err != nil {
					log.WithError(err).Warnf("event %d", je.ID)
					continue
				}
				log.Infof("%s %s", je.Time.Local().Format(time.RFC3339), ev.String())
			}
			return nil
		},
		Args: cobra.NoArgs,
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events (zero means no limit)")
	return cmd
}
