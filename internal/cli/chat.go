package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the indexed documents interactively",
	Long: `Open the index and answer questions typed on standard input until an exit
word (see chat.exit_words) or end of input. A failed question is reported and
the session continues.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	session, err := openSession(cfg, true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("pdfrag chat"))
	fmt.Fprintln(out, sourceStyle.Render(fmt.Sprintf("Type a question, or %s to leave.", strings.Join(cfg.Chat.ExitWords, "/"))))

	return chatLoop(cmd.Context(), cmd.InOrStdin(), out, session.Ask, cfg.Chat.ExitWords)
}

type askFunc func(ctx context.Context, question string) (*domain.Answer, error)

// chatLoop reads one question per line and prints each answer with its
// sources. It returns on an exit word, end of input or ctx cancellation.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, ask askFunc, exitWords []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, promptStyle.Render("> "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if isExitWord(line, exitWords) {
			fmt.Fprintln(out, sourceStyle.Render("Bye."))
			return nil
		}

		answer, err := ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(out)
				return nil
			}
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		printAnswer(out, answer)
	}
}

func isExitWord(line string, exitWords []string) bool {
	for _, w := range exitWords {
		if strings.EqualFold(line, strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}

func printAnswer(out io.Writer, answer *domain.Answer) {
	fmt.Fprintln(out, answerStyle.Render("Answer:"))
	fmt.Fprintln(out, answer.Text)
	fmt.Fprintln(out)

	if len(answer.Citations) == 0 {
		fmt.Fprintln(out, sourceStyle.Render("Sources: none"))
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintln(out, sourceStyle.Render("Sources:"))
	for _, c := range answer.Citations {
		fmt.Fprintln(out, sourceStyle.Render("  - "+c.String()))
	}
	fmt.Fprintln(out)
}
