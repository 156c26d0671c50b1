// Command quince is a minimal QUIC client/server for exercising the
// transport and engine packages from the command line.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "quince",
		Short: "A minimal QUIC client and server",
	}
	root.AddCommand(newClientCommand())
	root.AddCommand(newServerCommand())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
