package main

import "github.com/spf13/pflag"

// addLogLevelFlag registers the -v/--verbose flag shared by the client
// and server subcommands, directly against a pflag.FlagSet (the type
// cobra.Command.Flags() returns) rather than through cobra's StringVar
// wrappers, since both subcommands want byte-for-byte the same flag.
func addLogLevelFlag(flags *pflag.FlagSet, level *int) {
	flags.IntVarP(level, "verbose", "v", 2, "log verbose: 0=off 1=error 2=info 3=debug 4=trace")
}
