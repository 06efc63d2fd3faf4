package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/assurance/internal/server"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assurancectl",
		Short: "Assurance session companion",
		Long: `assurancectl runs the Assurance session companion as a headless daemon.

It accepts deep links and host events over a local admin API, holds them
until a session is connected, and forwards them to the Assurance service.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newConnectURLCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the assurancectl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), server.Version)
		},
	}
}
