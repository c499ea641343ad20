package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gigatui/gigatui/internal/logger"
	"github.com/gigatui/gigatui/pkg/provider"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the remaining GigaChat token balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Backend != "" && cfg.Backend != "gigachat" {
			return fmt.Errorf("balance is only available for the gigachat backend")
		}

		lg, err := logger.New(logger.Config{
			Level:     cfg.Logging.Level,
			Console:   cfg.Logging.Console,
			Pretty:    cfg.Logging.Pretty,
			Redaction: cfg.Logging.Redaction,
		}, cfg.AuthKey)
		if err != nil {
			return err
		}
		defer lg.Close()

		client, err := provider.NewGigaChatClient(cfg.ProviderSettings().GigaChat)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		defer cancel()

		items, err := client.Balance(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("no balance information returned")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%s: %.0f tokens\n", item.Usage, item.Value)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
