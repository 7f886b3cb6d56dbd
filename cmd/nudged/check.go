package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/nudged/internal/analysis"
	"github.com/goodtune/nudged/internal/capture"
	"github.com/goodtune/nudged/internal/config"
)

var checkWindow time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the capture service and analysis provider",
	Long: `Check that nudged can reach its dependencies: probes the activity-capture
service, runs a sample search, and optionally pings the analysis provider.`,
	Example: `  nudged -c config.yaml check
  nudged check --window 5m`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkWindow, "window", 10*time.Minute, "Search window for the sample query")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	// Commands talk to stdout, not the structured log.
	logger := zerolog.Nop()
	client := capture.NewClient(cfg.Capture.BaseURL, parseDuration(cfg.Capture.Timeout, 10*time.Second), logger)

	fmt.Printf("Capture service %s ... ", cfg.Capture.BaseURL)
	if err := client.Probe(ctx); err != nil {
		red.Println("UNREACHABLE")
		fmt.Printf("  %v\n", err)
		return fmt.Errorf("capture service probe failed")
	}
	green.Println("OK")

	now := time.Now()
	fmt.Printf("Sample search (last %s, content_type=%s) ... ", checkWindow, cfg.Capture.ContentType)
	samples, err := client.Search(ctx, cfg.Capture.ContentType, now.Add(-checkWindow), now, cfg.Capture.SampleLimit)
	if err != nil {
		red.Println("FAILED")
		fmt.Printf("  %v\n", err)
		return fmt.Errorf("capture search failed")
	}
	green.Printf("OK")
	fmt.Printf(" (%d samples)\n", len(samples))
	if len(samples) == 0 {
		yellow.Println("  No recent activity; is the capture service recording?")
	}

	fmt.Printf("Analysis provider %s (%s) ... ", cfg.Analysis.ProviderType, cfg.Analysis.Model)
	analyzer, err := analysis.New(analysis.Config{
		ProviderType: cfg.Analysis.ProviderType,
		Model:        cfg.Analysis.Model,
		EndpointURL:  cfg.Analysis.EndpointURL,
		APIKey:       cfg.Analysis.APIKey,
		MaxTokens:    16,
		Temperature:  0,
	}, logger)
	if err != nil {
		red.Println("MISCONFIGURED")
		fmt.Printf("  %v\n", err)
		return fmt.Errorf("analysis provider misconfigured")
	}
	if _, err := analyzer.Generate(ctx, "Reply with the single word: ok"); err != nil {
		red.Println("UNREACHABLE")
		fmt.Printf("  %v\n", err)
		return fmt.Errorf("analysis provider probe failed")
	}
	green.Println("OK")

	return nil
}
