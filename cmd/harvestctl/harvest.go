package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scholarcsv/scholar-harvest-service/pkg/harvestclient"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run a Google Scholar harvest and download the CSV",
	Long: `Harvest submits a search to the service, prints progress as the
service pages through Google Scholar results, and saves the CSV artifact once
the run completes. The SerpAPI key is read from --api-key or the SERPAPI_KEY
environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		query, _ := cmd.Flags().GetString("query")
		apiKey, _ := cmd.Flags().GetString("api-key")
		maxResults, _ := cmd.Flags().GetInt("max-results")
		outputDir, _ := cmd.Flags().GetString("output")
		skipDownload, _ := cmd.Flags().GetBool("no-download")

		if apiKey == "" {
			apiKey = os.Getenv("SERPAPI_KEY")
		}
		if apiKey == "" {
			return fmt.Errorf("an API key is required (--api-key or SERPAPI_KEY)")
		}
		if query == "" {
			return fmt.Errorf("--query is required")
		}

		client := harvestclient.New(server, nil)
		stream, err := client.Harvest(cmd.Context(), harvestclient.HarvestRequest{
			APIKey:     apiKey,
			Query:      query,
			MaxResults: maxResults,
		})
		if err != nil {
			return err
		}
		defer stream.Close()

		var final harvestclient.State
		for {
			state, kind, err := stream.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("reading progress stream: %w", err)
			}
			final = state

			switch kind {
			case "status":
				fmt.Fprintln(os.Stderr, state.Message)
			case "progress":
				fmt.Fprintf(os.Stderr, "page %d (%d collected)\n", state.Page, state.TotalRecords)
			case "papers":
				fmt.Fprintf(os.Stderr, "  +%d records, latest: %s\n", state.TotalRecords, state.LatestTitle)
			case "error":
				fmt.Fprintf(os.Stderr, "error: %s\n", state.ErrorMessage)
			}
		}

		switch final.Phase {
		case harvestclient.PhaseError:
			return fmt.Errorf("harvest failed: %s", final.ErrorMessage)
		case harvestclient.PhaseComplete:
			fmt.Fprintf(os.Stderr, "harvest complete: %d records\n", final.TotalRecords)
		default:
			return fmt.Errorf("stream ended before completion (phase %s)", final.Phase)
		}

		if final.Filename == "" || skipDownload {
			if final.Filename != "" {
				fmt.Println(final.Filename)
			}
			return nil
		}

		content, err := client.Download(cmd.Context(), final.Filename)
		if err != nil {
			return err
		}

		path := filepath.Join(outputDir, final.Filename)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	harvestCmd.Flags().String("query", "", "search query to harvest")
	harvestCmd.Flags().String("api-key", "", "SerpAPI key (defaults to SERPAPI_KEY)")
	harvestCmd.Flags().Int("max-results", 0, "maximum records to collect (0 uses the service ceiling)")
	harvestCmd.Flags().String("output", ".", "directory to save the CSV into")
	harvestCmd.Flags().Bool("no-download", false, "print the artifact filename instead of downloading it")

	rootCmd.AddCommand(harvestCmd)
}
