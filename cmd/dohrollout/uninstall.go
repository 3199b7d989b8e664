package main

import (
	"github.com/apex/log"
	"github.com/spf13/cobra"
)

func uninstallSubcommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Clears the managed preferences and the rollout state",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.sm.Uninstall(); err != nil {
				return err
			}
			log.Info("uninstalled")
			return nil
		},
		Args: cobra.NoArgs,
	}
}
