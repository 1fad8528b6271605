package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"document-qa/internal/helper"
)

var (
	querySession string
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the stored documents",
	Long: `Embeds the question, looks up the nearest stored chunks and prints the
closest one with its source. With --session the exchange is recorded in that
chat session.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&querySession, "session", "s", "", "record the answer in this chat session")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]
	withSession := querySession != ""

	a, err := buildApp(cmd.Context(), cfg, withSession)
	if err != nil {
		return err
	}
	defer a.Close()

	if withSession {
		reply, err := a.chat.Ask(cmd.Context(), querySession, question)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		return printAnswer(cmd, reply, reply.Answer, reply.Source)
	}

	ans, err := a.answerer.Answer(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return printAnswer(cmd, ans, ans.Answer, ans.Source)
}

func printAnswer(cmd *cobra.Command, v any, answer string, source *string) error {
	if queryJSON {
		data, err := helper.MarshalIndent(v)
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Println(answer)
	if source != nil {
		cmd.Printf("\nSource: %s\n", *source)
	}
	return nil
}
