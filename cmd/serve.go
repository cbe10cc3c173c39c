package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/reviewpilot/internal/api"
	"github.com/reviewpilot/internal/jobqueue"
)

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the webhook server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured listen port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	ctx := context.Background()

	rt, err := buildRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.close()

	port := rt.cfg.Server.Port
	if c.Int("port") != 0 {
		port = c.Int("port")
	}

	var runner api.Runner
	if rt.pool != nil {
		jq, err := jobqueue.NewJobQueue(rt.pool, rt.controller)
		if err != nil {
			return err
		}
		if err := jq.Start(ctx); err != nil {
			return err
		}
		defer jq.Stop(ctx)
		runner = jq
		log.Info().Msg("review jobs backed by database queue")
	} else {
		runner = api.NewAsyncRunner(rt.controller)
		log.Info().Msg("no database configured, running reviews in-process")
	}

	log.Info().Int("port", port).Msg("starting webhook server")
	return api.NewServer(port, rt.cfg.Server.WebhookSecret, runner).Start()
}
