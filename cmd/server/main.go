package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "sendernet-subscriptions",
		Usage:                 "Newsletter subscriptions backed by sender.net",
		EnableShellCompletion: true,
		DefaultCommand:        "serve",
		Commands: []*cli.Command{
			NewServeCommand(),
			NewCheckKeyCommand(),
			NewGroupsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
