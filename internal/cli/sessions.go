package cli

import (
	"github.com/spf13/cobra"

	"document-qa/internal/helper"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chat session ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.chat.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			cmd.Println(id)
		}
		return nil
	},
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history [session_id]",
	Short: "Print the history of a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		history, err := a.chat.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		helper.PrettyPrint(cmd.OutOrStdout(), history)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session_id]",
	Short: "Delete a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.chat.DeleteSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if deleted {
			cmd.Printf("Deleted session %s\n", args[0])
		} else {
			cmd.Printf("Session %s not found\n", args[0])
		}
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsHistoryCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
