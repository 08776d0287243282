package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
)

var (
	askQuestion string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Long: `Answer one question from the indexed documents.

Examples:
  pdfrag ask -q "what does the warranty cover?"
  pdfrag ask "how do I reset the device?" --json`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askQuestion, "query", "q", "", "question to answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := askQuestion
	if question == "" {
		question = strings.Join(args, " ")
	}
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: a question is required (use -q)", domain.ErrInvalidInput)
	}

	session, err := openSession(GetConfig(), true)
	if err != nil {
		return err
	}

	answer, err := session.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}
