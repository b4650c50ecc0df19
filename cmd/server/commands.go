package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/logging"
	"github.com/bcnelson/sendernet-subscriptions/internal/notify"
	"github.com/bcnelson/sendernet-subscriptions/internal/sender"
	"github.com/bcnelson/sendernet-subscriptions/internal/service"
	cli "github.com/urfave/cli/v3"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "token",
			Usage:    "sender.net API access token",
			Required: true,
			Sources:  cli.EnvVars("SENDER_API_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "sender.net API base URL",
			Value:   domain.DefaultBaseURL,
			Sources: cli.EnvVars("SENDER_API_BASE_URL"),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: 10 * time.Second,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "warn",
		},
	}
}

func clientFromFlags(command *cli.Command) (*sender.Client, domain.Credential) {
	logger := logging.New(command.String("log-level"), "text")
	client := sender.New(command.Duration("timeout"), sender.WithLogger(logger))
	cred := domain.Credential{Token: command.String("token"), BaseURL: command.String("base-url")}
	return client, cred
}

// NewCheckKeyCommand verifies a token against sender.net without saving it.
func NewCheckKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-key",
		Usage: "Check whether sender.net accepts an API access token",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			client, cred := clientFromFlags(command)
			ok, err := client.CheckAPIKey(ctx, cred)
			if err != nil {
				return fmt.Errorf("checking token: %w", err)
			}
			if !ok {
				fmt.Println("invalid")
				return cli.Exit("", 2)
			}
			fmt.Println("valid")
			return nil
		},
	}
}

// NewGroupsCommand prints the group options for a token, ordered by title.
func NewGroupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "List the sender.net groups available to an API access token",
		Flags: credentialFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			client, cred := clientFromFlags(command)
			logger := logging.New(command.String("log-level"), "text")

			ch := notify.NewCollector()
			options := service.NewGroupResolver(client, logger).Resolve(ctx, cred, ch)
			for _, n := range ch.Notices() {
				fmt.Printf("%s: %s\n", n.Level, n.Message)
			}
			if ch.Len() > 0 {
				return cli.Exit("", 1)
			}
			for _, g := range options {
				fmt.Printf("%s\t%s\n", g.ID, g.Title)
			}
			return nil
		},
	}
}
