package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/placechat/placechat/internal/config"
	"github.com/placechat/placechat/internal/search"
	"github.com/placechat/placechat/internal/telemetry"
)

func newSearchCmd() *cobra.Command {
	var (
		keyword    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <area>",
		Short: "Run a one-shot place search",
		Long:  `Resolves the area, queries the mapping provider, and prints the ranked results.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			level := parseLogLevel(cfg.LogLevel)
			if verbose {
				level = slog.LevelDebug
			}
			logger := telemetry.NewLogger(os.Stderr, level)

			searcher := buildSearcher(cfg, logger)

			area := strings.TrimSpace(strings.Join(args, " "))
			result, err := searcher.Run(cmd.Context(), search.Query{
				Area:    area,
				Keyword: strings.TrimSpace(keyword),
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyword, "keyword", "", "Optional keyword, e.g. \"cafe\" or \"bệnh viện\"")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw JSON result")

	return cmd
}

func printResult(result *search.Result) {
	if result.TotalCount == 0 {
		fmt.Printf("No places found in %s\n", result.Area)
		return
	}

	fmt.Printf("Found %d places in %s:\n", result.TotalCount, result.Area)
	for i, p := range result.Places {
		fmt.Printf("%2d. %s", i+1, p.Name)
		if p.Rating != nil {
			fmt.Printf("  (%.1f★, %d reviews)", *p.Rating, p.UserRatingsTotal)
		}
		fmt.Printf("\n    %s\n", p.Address)
	}
}
