/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/logging"
	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/internal/notify"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the notification delivery worker",
	Long: `Consumes notification events (password resets, contact messages)
from the message broker and delivers them. Usage:

	devfolio worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		logging.Setup(cfg.LogLevel)

		if cfg.MQ.Backend == "" {
			fmt.Fprintln(os.Stderr, "MQ_BACKEND must be set to run the worker")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect broker: %v\n", err)
			os.Exit(1)
		}
		defer broker.Close()

		consumer := notify.NewConsumer(broker, notify.LogDeliverer{})
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
