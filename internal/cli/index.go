package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

var (
	indexDocs string
	indexOut  string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the documents directory",
	Long: `Load every PDF and text file under the documents directory, split it into
overlapping chunks, embed each chunk and write the index to disk. An existing
index is only replaced once the new one has been written completely.

Examples:
  pdfrag index                             # Index ./docs into vectorstore/faiss_index
  pdfrag index --docs manuals --out idx    # Custom locations`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexDocs, "docs", "", "documents directory (default from config)")
	indexCmd.Flags().StringVar(&indexOut, "out", "", "index directory (default from config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := GetLogger()

	src := resolvePath(cfg.Docs.Dir)
	if indexDocs != "" {
		src = indexDocs
	}
	dst := resolvePath(cfg.Index.Path)
	if indexOut != "" {
		dst = indexOut
	}

	metric, err := domain.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return err
	}

	chk, err := chunker.NewRecursiveChunker(cfg.Chunk.MaxSize, cfg.Chunk.Overlap)
	if err != nil {
		return err
	}

	embedder, err := embedding.FromConfig(cfg.Embedding)
	if err != nil {
		return err
	}

	indexUC := usecase.NewIndexUseCase(
		fs.NewLoader(fs.NewWalker(cfg.Docs.Includes, cfg.Docs.Excludes), logger),
		chk,
		embedder,
		newIndexStore(cfg),
		usecase.IndexOptions{
			Metric:    metric,
			BatchSize: cfg.Embedding.BatchSize,
			Logger:    logger,
		},
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Scanning %s...\n", src)

	// The bar is created once the chunk count is known.
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := indexUC.Build(cmd.Context(), src, dst, progress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nIndexing complete:\n")
	fmt.Fprintf(out, "  Files:      %d\n", result.Files)
	fmt.Fprintf(out, "  Documents:  %d\n", result.Documents)
	fmt.Fprintf(out, "  Chunks:     %d\n", result.Chunks)
	fmt.Fprintf(out, "  Dimension:  %d (%s)\n", result.Dimension, embedder.ModelName())
	fmt.Fprintf(out, "  Took:       %s\n", formatDuration(result.Elapsed))
	fmt.Fprintf(out, "\nIndex stored at: %s\n", result.Path)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
