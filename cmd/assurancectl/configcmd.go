package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/assurance/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check daemon config files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config file with every default spelled out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok name=%s admin=%s state=%q\n", cfg.Name, cfg.Admin.Addr, cfg.StatePath)
			s := cfg.Agent.Session
			fmt.Fprintf(out, "session host=%s chunk_size=%d queues=%d/%d reconnect=%s\n",
				s.Host, s.ChunkSize, s.InboundCapacity, s.OutboundCapacity, s.Reconnect.Delay)
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}
