package main

import (
	"context"
	"fmt"
	"os"

	"ai-finance-assistant-be/internal/bootstrap"
	"ai-finance-assistant-be/internal/config"
	"ai-finance-assistant-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	container *bootstrap.Container
	stopAudit context.CancelFunc
	auditDone = make(chan struct{})
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "assistantctl",
		Short: "Operator CLI for the finance analytics assistant",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			container, err = bootstrap.NewContainer(db, cfg)
			if err != nil {
				return err
			}

			// Audit records are flushed when the command finishes.
			var ctx context.Context
			ctx, stopAudit = context.WithCancel(context.Background())
			go func() {
				defer close(auditDone)
				_ = container.AuditWriter.Run(ctx)
			}()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if stopAudit != nil {
				stopAudit()
				<-auditDone
			}
			if container != nil {
				container.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newSeedExamplesCmd())
	rootCmd.AddCommand(newAskCmd())

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
