package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/danmuck/assurance/internal/session"
)

type connectURLOptions struct {
	deepLink  string
	sessionID string
	env       string
	pin       string
	orgID     string
	clientID  string
	host      string
}

func newConnectURLCmd() *cobra.Command {
	var opts connectURLOptions
	cmd := &cobra.Command{
		Use:   "connect-url",
		Short: "Print the socket URL a session would connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := buildConnectURL(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.deepLink, "deeplink", "", "launch URL carrying the session id and environment")
	f.StringVar(&opts.sessionID, "session-id", "", "session id (ignored with --deeplink)")
	f.StringVar(&opts.env, "env", "", "environment: prod, stage, qa or dev")
	f.StringVar(&opts.pin, "pin", "", "session PIN")
	f.StringVar(&opts.orgID, "org", "", "organization id")
	f.StringVar(&opts.clientID, "client-id", "", "client id (random when empty)")
	f.StringVar(&opts.host, "host", session.DefaultHost, "service host")
	return cmd
}

func buildConnectURL(opts connectURLOptions) (string, error) {
	var (
		details session.Details
		err     error
	)
	if opts.deepLink != "" {
		details, err = session.ParseDeepLink(opts.deepLink)
	} else {
		details, err = session.NewDetails(opts.sessionID, session.ParseEnvironment(opts.env))
	}
	if err != nil {
		return "", err
	}
	if opts.pin == "" || opts.orgID == "" {
		return "", errors.New("connect-url: --pin and --org are required")
	}
	details.Authenticate(opts.pin, opts.orgID)

	clientID := opts.clientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return details.SocketURL(opts.host, clientID)
}
