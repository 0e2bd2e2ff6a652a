/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/clipshare/apiserver/config"
	"github.com/clipshare/apiserver/internal/mq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events published to the configured broker",
	Long: `Subscribes to the event channels and prints every message received.

	clipshare events tail --channel user.registered
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		channels, err := cmd.Flags().GetStringSlice("channel")
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			channels = mq.Channels
		}

		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if err := requireBroker(cfg.MQ); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus, err := mq.Open(ctx, cfg.MQ, logger.Sugar().Named("events"))
		if err != nil {
			return err
		}
		defer func() { _ = bus.Close() }()

		out := cmd.OutOrStdout()
		g, ctx := errgroup.WithContext(ctx)
		for _, channel := range channels {
			g.Go(func() error {
				return bus.Subscribe(ctx, channel, func(_ context.Context, msg mq.Message) error {
					_, err := fmt.Fprintf(out, "%s\t%s\t%s\n", channel, msg.ID, msg.Data)
					return err
				})
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// requireBroker rejects the in-process backend, whose events never leave the
// server process.
func requireBroker(cfg config.MQConfig) error {
	switch cfg.Backend {
	case config.MQNone, "":
		return errors.New("events tail needs a broker backend: set MQ_BACKEND to rabbitmq or pubsub")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)

	eventsTailCmd.Flags().StringSlice("channel", nil, "channel to follow (repeatable; defaults to all)")
}
