// Command dohrollout runs the DoH rollout engine.
package main

//
// Main
//

import (
	"github.com/apex/log"
	"github.com/ooni/dohrollout/internal/log/handlers/cli"
	"github.com/ooni/dohrollout/internal/version"
	"github.com/spf13/cobra"
)

// globalOptions contains the options shared by all subcommands.
type globalOptions struct {
	configPath string
	home       string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "dohrollout",
		Short:         "Decides whether to enable DNS over HTTPS on this network",
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Log = &log.Logger{Level: log.InfoLevel, Handler: cli.Default}
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the config file")
	flags.StringVar(&opts.home, "home", "", "Home directory (default: $"+homeEnv+" or ~/.dohrollout)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.AddCommand(runSubcommand(opts))
	root.AddCommand(evaluateSubcommand(opts))
	root.AddCommand(statusSubcommand(opts))
	root.AddCommand(uninstallSubcommand(opts))
	root.AddCommand(eventsSubcommand(opts))
	root.AddCommand(prefSubcommand(opts))
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Fatal("dohrollout")
	}
}
