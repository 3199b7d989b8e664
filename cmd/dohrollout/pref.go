package main

//
// The pref subcommand
//

import (
	"fmt"
	"strconv"

	"github.com/apex/log"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/prefs"
	"github.com/spf13/cobra"
)

func prefSubcommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Reads and writes preferences like a user or an administrator would",
	}
	cmd.AddCommand(prefGetSubcommand(opts))
	cmd.AddCommand(prefSetSubcommand(opts))
	cmd.AddCommand(prefClearSubcommand(opts))
	return cmd
}

// withPrefs opens the preference store without opening the whole session.
func withPrefs(opts *globalOptions, fx func(store *prefs.FileStore) error) error {
	home, err := opts.homeDir()
	if err != nil {
		return err
	}
	return fx(prefs.NewFileStore(prefsPath(home)))
}

func prefGetSubcommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Prints the user value of a preference",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrefs(opts, func(store *prefs.FileStore) error {
				entry, found, err := store.Lookup(args[0])
				if err != nil {
					return err
				}
				if !found {
					log.Infof("%s has no user value", args[0])
					return nil
				}
				log.Infof("%s = %s (%s)", args[0], string(entry.Value), entry.Type)
				return nil
			})
		},
		Args: cobra.ExactArgs(1),
	}
}

// setPref parses the value according to ptype, or guesses the type
// when ptype is empty.
func setPref(store model.PreferenceStore, name, value string, ptype model.PrefType) error {
	if ptype == "" {
		ptype = guessPrefType(value)
	}
	switch ptype {
	case model.PrefTypeBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		return store.SetBoolPref(name, v)
	case model.PrefTypeInt:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		return store.SetIntPref(name, v)
	case model.PrefTypeString:
		return store.SetStringPref(name, value)
	default:
		return fmt.Errorf("unknown preference type: %s", ptype)
	}
}

func guessPrefType(value string) model.PrefType {
	if value == "true" || value == "false" {
		return model.PrefTypeBool
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return model.PrefTypeInt
	}
	return model.PrefTypeString
}

func prefSetSubcommand(opts *globalOptions) *cobra.Command {
	ptype := ""
	cmd := &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Sets the user value of a preference",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrefs(opts, func(store *prefs.FileStore) error {
				return setPref(store, args[0], args[1], model.PrefType(ptype))
			})
		},
		Args: cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&ptype, "type", "", "Preference type: bool, int or string (default: guess)")
	return cmd
}

func prefClearSubcommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear NAME",
		Short: "Clears the user value of a preference",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrefs(opts, func(store *prefs.FileStore) error {
				return store.ClearUserPref(args[0])
			})
		},
		Args: cobra.ExactArgs(1),
	}
}
