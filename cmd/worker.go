/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/linklytics/apiserver/config"
	"github.com/linklytics/apiserver/internal/logger"
	"github.com/linklytics/apiserver/internal/mq"
	"github.com/linklytics/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the click-event worker",
	Long: `Starts the worker that consumes click events from the message
queue. Usage:

	linklytics worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		if err := logger.Init(cfg.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		queue, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			logger.Log.Errorw("failed to connect message queue", "error", err)
			os.Exit(1)
		}
		if queue == nil {
			logger.Log.Errorw("no message queue backend configured")
			os.Exit(1)
		}
		defer queue.Close()

		logger.Log.Infow("worker consuming", "channel", services.ClickEventsChannel)
		if err := services.NewClickConsumer(queue).Run(cmd.Context()); err != nil {
			logger.Log.Errorw("worker error", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	// Here you will define your flags and configuration settings.

	// Cobra supports Persistent Flags which will work for this command
	// and all subcommands, e.g.:
	// workerCmd.PersistentFlags().String("foo", "", "A help for foo")

	// Cobra supports local flags which will only run when this command
	// is called directly, e.g.:
	// workerCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
}
