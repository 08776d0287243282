package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
)

var (
	searchQuery string
	searchK     int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the passages retrieved for a query without generating",
	Args:  cobra.ArbitraryArgs,
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query")
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := searchQuery
	if query == "" {
		query = strings.Join(args, " ")
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: a query is required (use -q)", domain.ErrInvalidInput)
	}
	if searchK < 0 {
		return fmt.Errorf("%w: --top-k must be positive", domain.ErrInvalidInput)
	}

	session, err := openSession(GetConfig(), false)
	if err != nil {
		return err
	}

	results, err := session.Retrieve(cmd.Context(), query, searchK)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResults(cmd.OutOrStdout(), results)
	return nil
}

func printResults(out io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return
	}
	for _, r := range results {
		where := r.Chunk.Source
		if r.Chunk.Page > 0 {
			where = fmt.Sprintf("%s (page %d)", where, r.Chunk.Page)
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d. %s", r.Rank, where))+
			sourceStyle.Render(fmt.Sprintf("  distance %.4f", r.Distance)))
		fmt.Fprintln(out, preview(r.Chunk.Text, 300))
		fmt.Fprintln(out)
	}
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
