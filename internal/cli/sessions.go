package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gigatui/gigatui/pkg/chat"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigNoValidate()
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

		manager := chat.NewManager(nil, repo, store, chat.Options{DefaultMaxTokens: cfg.MaxTokens})
		sessions := manager.ListSessions()
		if len(sessions) == 0 {
			fmt.Println("no chats stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Title, s.Messages, s.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
