package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/enermsg/edikit/internal/batch"
	"github.com/enermsg/edikit/pkg/convert"
)

func registerBatchCmd(rootCmd *cobra.Command, s *settings) {
	var (
		outputDir string
		metrics   bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Convert every EDIFACT file in a directory concurrently",
		Long: `Convert every .edi file in a directory to BO4E JSON, fanning the work
out over worker goroutines. One failed file does not stop the run; its error
is reported and the batch continues. Worker count and per-message timeout
come from the batch section of the configuration.`,
		Example: `  # Convert a day's worth of interchanges
  edikit batch ./inbox -o ./outbox`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(s)
			if err != nil {
				return err
			}
			jobs, err := collectJobs(args[0])
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No .edi files found.")
				return nil
			}

			opts := []batch.Option{
				batch.WithWorkers(p.cfg.Batch.Workers),
				batch.WithTimeout(p.cfg.Batch.MessageTimeout),
			}
			if metrics || p.cfg.Metrics.Metrics.Enabled {
				opts = append(opts, batch.WithMetrics(serveMetrics(p.cfg.Metrics.Metrics.Address, p.cfg.Metrics.Metrics.Path)))
			}
			driver, err := batch.New(func() *convert.Coordinator { return p.coordinator }, opts...)
			if err != nil {
				return err
			}

			outcomes, err := driver.Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			return reportOutcomes(outcomes, outputDir)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write one .json file per input into this directory")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "expose Prometheus metrics while the batch runs")
	rootCmd.AddCommand(cmd)
}

func collectJobs(dir string) ([]batch.Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var jobs []batch.Job
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".edi") {
			continue
		}
		input, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batch.Job{ID: entry.Name(), Input: input})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

func serveMetrics(address, path string) *batch.Metrics {
	registry := prometheus.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		_ = http.ListenAndServe(address, mux)
	}()
	return batch.NewMetrics(registry)
}

func reportOutcomes(outcomes []batch.Outcome, outputDir string) error {
	var failed int
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", outcome.ID, outcome.Err)
			continue
		}
		if outputDir == "" {
			continue
		}
		for i, msg := range outcome.Result.Messages {
			name := strings.TrimSuffix(outcome.ID, ".edi")
			if len(outcome.Result.Messages) > 1 {
				name = fmt.Sprintf("%s.%d", name, i)
			}
			target := filepath.Join(outputDir, name+".json")
			if err := os.WriteFile(target, msg.Document, 0o644); err != nil {
				return err
			}
		}
	}
	fmt.Printf("%d converted, %d failed\n", len(outcomes)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}
