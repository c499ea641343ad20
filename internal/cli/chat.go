package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gigatui/gigatui/internal/config"
	"github.com/gigatui/gigatui/internal/logger"
	"github.com/gigatui/gigatui/internal/tui"
	"github.com/gigatui/gigatui/pkg/chat"
	"github.com/gigatui/gigatui/pkg/provider"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt-screen TUI owns the terminal, so console logging is off here;
	// file logging still applies when configured.
	logCfg := logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   false,
		Redaction: cfg.Logging.Redaction,
	}
	lg, err := logger.New(logCfg, cfg.AuthKey, cfg.OpenAI.APIKey)
	if err != nil {
		return err
	}
	defer lg.Close()

	client, err := provider.New(cfg.ProviderSettings())
	if err != nil {
		return err
	}

	repo, err := chat.NewRepository(cfg.StorePath)
	if err != nil {
		return err
	}

	store, err := loadStore(repo)
	if err != nil {
		return err
	}

	opts := chat.Options{
		DefaultMaxTokens: cfg.MaxTokens,
		SystemPrompt:     cfg.SystemPrompt,
	}

	if cfg.WatchStore {
		if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o700); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		watcher, err := chat.NewStoreWatcher(cfg.StorePath)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
		opts.Watcher = watcher
	}

	manager := chat.NewManager(client, repo, store, opts)

	var balance tui.BalanceFunc
	if gc, ok := client.(*provider.GigaChatClient); ok {
		balance = gc.Balance
	}

	log.Info().Str("backend", client.Name()).Str("store", cfg.StorePath).Msg("starting chat interface")
	return tui.Run(manager, client.Name(), balance)
}

// loadConfig loads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := loadConfigNoValidate()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigNoValidate is for commands that only touch the local store and
// do not need working credentials.
func loadConfigNoValidate() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// loadStore reads the chat store. A corrupt store is fatal unless the user
// explicitly asked to discard it, in which case the file is preserved under
// a .corrupt suffix before the next save can overwrite it.
func loadStore(repo *chat.Repository) (chat.Store, error) {
	store, err := repo.LoadAll()
	if err == nil {
		return store, nil
	}

	var perr *chat.PersistenceError
	if !errors.As(err, &perr) || !discardCorrupt {
		return nil, fmt.Errorf("%w\n(use --discard-corrupt to start with an empty store)", err)
	}

	backup := repo.Path() + ".corrupt"
	if renameErr := os.Rename(repo.Path(), backup); renameErr != nil {
		return nil, fmt.Errorf("preserve corrupt store: %w", renameErr)
	}
	log.Warn().Str("backup", backup).Msg("corrupt chat store discarded on user request")
	fmt.Fprintf(os.Stderr, "corrupt chat store moved to %s, starting empty\n", backup)
	return chat.Store{}, nil
}
