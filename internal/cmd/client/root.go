package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command holding the client commands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "pubrt",
		Short: "pubrt client commands",
	}
	AddCommands(root, baseURL)
	return root
}

// AddCommands registers clean, send, watch, and health on root.
func AddCommands(root *cobra.Command, baseURL BaseURLFunc) {
	root.AddCommand(
		NewCleanCommand(),
		NewSendCommand(baseURL),
		NewWatchCommand(baseURL),
		NewHealthCommand(baseURL),
	)
}
