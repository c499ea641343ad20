// Package cli wires the cobra commands: the chat TUI (default), session
// listing and the balance query.
package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile        string
	logLevel       string
	storePath      string
	discardCorrupt bool
)

// rootCmd represents the base command. Invoked without a subcommand it
// starts the chat interface, like the original client.
var rootCmd = &cobra.Command{
	Use:   "gigatui",
	Short: "gigatui - terminal chat client for GigaChat",
	Long: `gigatui is a terminal chat client for the GigaChat API.
It keeps conversation history in a local JSON store and renders an
interactive chat interface.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gigatui/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "chat store file (default from GIGACHAT_CHATS_JSON)")
	rootCmd.PersistentFlags().BoolVar(&discardCorrupt, "discard-corrupt", false, "start with an empty store when the store file is corrupt (the file is kept under a .corrupt suffix)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}
