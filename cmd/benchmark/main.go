package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pdfrag/config"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/retriever"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding pdfrag.yaml")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 4, "Number of results")
	relevant := flag.String("relevant", "", "Comma-separated file names expected in the results")
	runs := flag.Int("n", 20, "Search repetitions for latency")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" [-relevant manual.pdf,faq.md]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index shape (entries, dimension, model)")
		fmt.Println("  2. Distance of each retrieved chunk to the query")
		fmt.Println("  3. Precision, recall, MRR and NDCG against -relevant")
		fmt.Println("  4. Search latency over -n runs")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fail("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("Invalid config: %v", err)
	}

	embedder, err := embedding.FromConfig(cfg.Embedding)
	if err != nil {
		fail("Embedder init failed: %v", err)
	}
	metric, _ := domain.ParseMetric(cfg.Index.Metric)

	indexDir := cfg.Index.Path
	if !filepath.IsAbs(indexDir) {
		indexDir = filepath.Join(*dir, indexDir)
	}
	st := store.NewBoltIndexStore(store.ComputeConfigHash(cfg), nil)
	idx, err := usecase.OpenIndex(st, indexDir, store.Expectation{
		Dimension: embedder.Dimension(),
		Metric:    metric,
		Model:     embedder.ModelName(),
	})
	if err != nil {
		fail("Error opening index: %v", err)
	}

	info := idx.Info()
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", idx.Len())
	fmt.Printf("Model: %s (%s)\n", info.EmbeddingModel, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d, metric: %s\n", info.Dimension, info.Metric)
	fmt.Println()

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ctx := context.Background()
	embedStart := time.Now()
	vecs, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fail("Embedding error: %v", err)
	}
	embedTime := time.Since(embedStart)

	results, err := idx.Search(vecs[0], *topK)
	if err != nil {
		fail("Search error: %v", err)
	}

	fmt.Printf("Top %d matches:\n\n", len(results))
	for _, r := range results {
		where := filepath.Base(r.Chunk.Source)
		if r.Chunk.Page > 0 {
			where = fmt.Sprintf("%s p.%d", where, r.Chunk.Page)
		}
		preview := strings.Join(strings.Fields(r.Chunk.Text), " ")
		if runes := []rune(preview); len(runes) > 150 {
			preview = string(runes[:150]) + "..."
		}
		fmt.Printf("%d. [%s %.3f] %s\n", r.Rank, rating(info.Metric, r.Distance), r.Distance, where)
		fmt.Printf("   %s\n\n", preview)
	}

	latencies := make([]time.Duration, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		if _, err := idx.Search(vecs[0], *topK); err != nil {
			fail("Search error: %v", err)
		}
		latencies = append(latencies, time.Since(start))
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("LATENCY:")
	fmt.Printf("  Query embedding: %s\n", embedTime.Round(time.Microsecond))
	if len(latencies) > 0 {
		fmt.Printf("  Search p50:      %s\n", latencies[len(latencies)/2].Round(time.Microsecond))
		fmt.Printf("  Search max:      %s\n", latencies[len(latencies)-1].Round(time.Microsecond))
	}

	if *relevant == "" {
		return
	}
	var want []string
	for _, name := range strings.Split(*relevant, ",") {
		if name = strings.TrimSpace(name); name != "" {
			want = append(want, name)
		}
	}
	got := retriever.RankedSources(results)

	fmt.Println("QUALITY METRICS:")
	fmt.Printf("  Sources retrieved: %s\n", strings.Join(got, ", "))
	fmt.Printf("  Precision: %.3f\n", retriever.PrecisionAtK(got, want))
	fmt.Printf("  Recall:    %.3f\n", retriever.RecallAtK(got, want))
	fmt.Printf("  MRR:       %.3f\n", retriever.ReciprocalRank(got, want))
	fmt.Printf("  NDCG:      %.3f\n", retriever.BinaryNDCG(got, want))
}

// rating buckets a cosine distance the way similarity scores are usually read.
func rating(metric domain.Metric, distance float64) string {
	if metric != domain.MetricCosine {
		return "-"
	}
	similarity := 1 - distance
	switch {
	case similarity > 0.7:
		return "HIGH"
	case similarity > 0.5:
		return "GOOD"
	case similarity > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
