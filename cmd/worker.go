package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/monitoring"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the stage workers until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Broker.Start(ctx); err != nil {
			return err
		}

		checker := monitoring.NewChecker(
			monitoring.NewCollector(env.Store, env.Broker),
			monitoring.NewAlerter(cfg.Monitor),
			cfg.Monitor,
		)
		go checker.Run(ctx)

		zap.L().Info("workers started", zap.String("broker", cfg.Queue.Broker))
		<-ctx.Done()
		zap.L().Info("shutting down workers")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
